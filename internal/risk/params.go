package risk

import "github.com/Rajchodisetti/pm-router/internal/decision"

// Params scale strategy behavior per risk mode.
type Params struct {
	PositionScale float64 `json:"position_scale"` // multiplier on strategy size
	MaxExposure   float64 `json:"max_exposure"`   // max fraction of equity in one position
	StopLossPct   float64 `json:"stop_loss_pct"`  // adverse-move exit threshold
}

// ParamsFor returns the parameter set for mode. Unknown modes get the
// normal set.
func ParamsFor(mode decision.RiskMode) Params {
	switch mode {
	case decision.RiskDefensive:
		return Params{PositionScale: 0.5, MaxExposure: 0.3, StopLossPct: 0.02}
	case decision.RiskAggressive:
		return Params{PositionScale: 1.5, MaxExposure: 0.8, StopLossPct: 0.10}
	default:
		return Params{PositionScale: 1.0, MaxExposure: 0.5, StopLossPct: 0.05}
	}
}
