package market

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Observation is one market-state record. Produced once per stream step and
// consumed by exactly one routing cycle; treated as immutable after Validate.
type Observation struct {
	Symbol     string    `json:"symbol"`
	Index      int       `json:"index"`                 // sequence number within the stream
	Time       time.Time `json:"time,omitempty"`
	RegimeHint string    `json:"regime_hint,omitempty"` // "arb" | "sniper" | ""

	// Cross-venue arbitrage legs: buy venue ask vs sell venue bid.
	PMAsk       float64 `json:"pm_ask,omitempty"`
	OpBid       float64 `json:"op_bid,omitempty"`
	PMLiquidity float64 `json:"pm_liquidity,omitempty"`
	OpLiquidity float64 `json:"op_liquidity,omitempty"`

	// Directional entry quote.
	CurrentAsk  float64 `json:"current_ask,omitempty"`
	BestBid     float64 `json:"best_bid,omitempty"`
	TargetPrice float64 `json:"target_price,omitempty"`
	GasCost     float64 `json:"gas_cost,omitempty"`
}

// DataError marks an observation the router cannot process. The backtest
// skips the offending observation and continues the run.
type DataError struct {
	Symbol  string
	Index   int
	Message string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("bad observation %s[%d]: %s", e.Symbol, e.Index, e.Message)
}

// Validate normalizes the symbol and fails closed on records that carry no
// usable quote. Zero-valued price fields mean "not quoted on this venue".
func (o *Observation) Validate() error {
	o.Symbol = strings.ToUpper(strings.TrimSpace(o.Symbol))
	if o.Symbol == "" {
		return &DataError{Index: o.Index, Message: "empty symbol"}
	}
	for name, v := range map[string]float64{
		"pm_ask":       o.PMAsk,
		"op_bid":       o.OpBid,
		"current_ask":  o.CurrentAsk,
		"best_bid":     o.BestBid,
		"target_price": o.TargetPrice,
		"gas_cost":     o.GasCost,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return &DataError{Symbol: o.Symbol, Index: o.Index, Message: fmt.Sprintf("invalid %s: %v", name, v)}
		}
	}
	if !o.HasArbLegs() && !o.HasSniperQuote() && !o.HasExitQuote() {
		return &DataError{Symbol: o.Symbol, Index: o.Index, Message: "no priced instrument fields"}
	}
	return nil
}

// HasArbLegs reports whether both arbitrage legs are quoted.
func (o *Observation) HasArbLegs() bool {
	return o.PMAsk > 0 && o.OpBid > 0
}

// HasSniperQuote reports whether the directional entry fields are quoted.
func (o *Observation) HasSniperQuote() bool {
	return o.CurrentAsk > 0 && o.TargetPrice > 0
}

// HasExitQuote reports whether the record can price a take-profit exit.
func (o *Observation) HasExitQuote() bool {
	return o.BestBid > 0 && o.TargetPrice > 0
}

// MarkPrice picks the valuation mark: mid of the arb legs, else mid of the
// directional book, else bid, else ask, else the caller's fallback.
func (o *Observation) MarkPrice(fallback float64) float64 {
	switch {
	case o.HasArbLegs():
		return (o.PMAsk + o.OpBid) / 2
	case o.BestBid > 0 && o.CurrentAsk > 0:
		return (o.BestBid + o.CurrentAsk) / 2
	case o.BestBid > 0:
		return o.BestBid
	case o.CurrentAsk > 0:
		return o.CurrentAsk
	default:
		return fallback
	}
}
