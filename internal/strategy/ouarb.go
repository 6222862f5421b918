package strategy

import (
	"strconv"

	"github.com/Rajchodisetti/pm-router/internal/market"
)

// OUArbConfig tunes the cross-venue arbitrage strategy.
type OUArbConfig struct {
	MinProfitRate float64 // minimum spread as a fraction of the ask, default 0.02
	DefaultSize   float64 // shares per leg, default 100
}

// OUArb buys the prediction-market ask and sells the order-book bid when
// the same outcome trades rich enough on the book to cover the spread
// threshold. Both legs are emitted together at the observed prices.
type OUArb struct {
	config OUArbConfig
}

func NewOUArb(config OUArbConfig) *OUArb {
	if config.MinProfitRate == 0 {
		config.MinProfitRate = 0.02
	}
	if config.DefaultSize == 0 {
		config.DefaultSize = 100
	}
	return &OUArb{config: config}
}

func (s *OUArb) Name() string { return NameOUArb }

func (s *OUArb) OnObservation(obs market.Observation) ([]market.OrderInstruction, error) {
	if !obs.HasArbLegs() {
		return nil, nil
	}
	spreadPct := (obs.OpBid - obs.PMAsk) / obs.PMAsk
	if spreadPct < s.config.MinProfitRate {
		return nil, nil
	}

	size := s.config.DefaultSize
	if obs.PMLiquidity > 0 && size > obs.PMLiquidity {
		size = obs.PMLiquidity
	}
	if obs.OpLiquidity > 0 && size > obs.OpLiquidity {
		size = obs.OpLiquidity
	}

	meta := map[string]string{
		"spread_pct": strconv.FormatFloat(spreadPct, 'f', 6, 64),
	}
	return []market.OrderInstruction{
		{Symbol: obs.Symbol, Side: market.Buy, Size: size, Price: obs.PMAsk, Strategy: NameOUArb, Meta: meta},
		{Symbol: obs.Symbol, Side: market.Sell, Size: size, Price: obs.OpBid, Strategy: NameOUArb, Meta: meta},
	}, nil
}
