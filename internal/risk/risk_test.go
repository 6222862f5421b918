package risk

import (
	"testing"

	"github.com/Rajchodisetti/pm-router/internal/decision"
)

func TestParamsFor(t *testing.T) {
	tests := []struct {
		mode  decision.RiskMode
		scale float64
		expo  float64
		stop  float64
	}{
		{decision.RiskDefensive, 0.5, 0.3, 0.02},
		{decision.RiskNormal, 1.0, 0.5, 0.05},
		{decision.RiskAggressive, 1.5, 0.8, 0.10},
		{decision.RiskMode("unknown"), 1.0, 0.5, 0.05},
	}
	for _, tt := range tests {
		p := ParamsFor(tt.mode)
		if p.PositionScale != tt.scale || p.MaxExposure != tt.expo || p.StopLossPct != tt.stop {
			t.Errorf("%s: params = %+v", tt.mode, p)
		}
	}
}

func TestKellyFraction(t *testing.T) {
	tests := []struct {
		name string
		p, b float64
		want float64
	}{
		{"even odds no edge", 0.5, 1, 0},
		{"small edge", 0.55, 1, 0.05},
		{"strong edge hits cap", 0.6, 2, 0.20},
		{"negative edge clips to zero", 0.4, 1, 0},
		{"zero payoff", 0.9, 0, 0},
		{"zero probability", 0, 2, 0},
		{"probability above one clamps", 1.5, 1, 0.20},
	}
	for _, tt := range tests {
		if got := KellyFraction(tt.p, tt.b); !nearly(got, tt.want) {
			t.Errorf("%s: KellyFraction(%v, %v) = %v, want %v", tt.name, tt.p, tt.b, got, tt.want)
		}
	}
}

func TestKellyNotional(t *testing.T) {
	if got := KellyNotional(10000, 0.55, 1); !nearly(got, 500) {
		t.Errorf("notional = %v, want 500", got)
	}
	if got := KellyNotional(-100, 0.55, 1); got != 0 {
		t.Errorf("negative capital should size zero, got %v", got)
	}
}

func nearly(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
