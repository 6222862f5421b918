package strategy

import (
	"strconv"

	"github.com/Rajchodisetti/pm-router/internal/market"
)

// SniperConfig tunes the dislocation entry strategy.
type SniperConfig struct {
	MinPriceGap float64 // minimum target-ask gap, default 0.05
	BaseSize    float64 // size at exactly MinPriceGap, default 100
	MaxSize     float64 // size cap, default 400
	GasCost     float64 // flat execution cost per entry
}

// Sniper buys when the ask trades far enough below target that the gap
// clears gas at base size. Entry size grows linearly with the gap up to
// MaxSize. An open position is sold once the bid reaches the target.
type Sniper struct {
	config   SniperConfig
	position float64 // running size from assumed fills
}

func NewSniper(config SniperConfig) *Sniper {
	if config.MinPriceGap == 0 {
		config.MinPriceGap = 0.05
	}
	if config.BaseSize == 0 {
		config.BaseSize = 100
	}
	if config.MaxSize == 0 {
		config.MaxSize = 400
	}
	return &Sniper{config: config}
}

func (s *Sniper) Name() string { return NameSniper }

func (s *Sniper) OnObservation(obs market.Observation) ([]market.OrderInstruction, error) {
	if s.position > 0 {
		if obs.BestBid > 0 && obs.TargetPrice > 0 && obs.BestBid >= obs.TargetPrice {
			sell := market.OrderInstruction{
				Symbol:   obs.Symbol,
				Side:     market.Sell,
				Size:     s.position,
				Price:    obs.BestBid,
				Strategy: NameSniper,
				Meta:     map[string]string{"exit": "take_profit"},
			}
			s.position = 0
			return []market.OrderInstruction{sell}, nil
		}
		// holding: wait for the exit
		return nil, nil
	}

	if !obs.HasSniperQuote() {
		return nil, nil
	}
	priceGap := obs.TargetPrice - obs.CurrentAsk
	if priceGap < s.config.MinPriceGap {
		return nil, nil
	}
	expectedProfit := priceGap*s.config.BaseSize - s.config.GasCost
	if expectedProfit <= 0 {
		return nil, nil
	}

	size := s.config.BaseSize * (priceGap / s.config.MinPriceGap)
	if size > s.config.MaxSize {
		size = s.config.MaxSize
	}
	s.position = size

	return []market.OrderInstruction{{
		Symbol:   obs.Symbol,
		Side:     market.Buy,
		Size:     size,
		Price:    obs.CurrentAsk,
		Strategy: NameSniper,
		Meta: map[string]string{
			"price_gap":       strconv.FormatFloat(priceGap, 'f', 6, 64),
			"expected_profit": strconv.FormatFloat(expectedProfit, 'f', 6, 64),
		},
	}}, nil
}
