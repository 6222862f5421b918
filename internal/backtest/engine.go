package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Rajchodisetti/pm-router/internal/decision"
	"github.com/Rajchodisetti/pm-router/internal/market"
	"github.com/Rajchodisetti/pm-router/internal/observ"
	"github.com/Rajchodisetti/pm-router/internal/risk"
	"github.com/Rajchodisetti/pm-router/internal/router"
)

// Sizing policies applied to entry orders.
const (
	SizingOff       = "off"
	SizingRiskScale = "risk_scale"
	SizingKelly     = "kelly"
)

// Config tunes a run.
type Config struct {
	Name        string  // result label, default strategy_router
	InitialCash float64 // default 10000
	SizingMode  string  // off, risk_scale, or kelly; default off
	KellyPayoff float64 // payoff ratio assumed by kelly sizing, default 2
	DefaultMark float64 // mark before any usable price, default 0.5
	Seed        uint64  // trade ID entropy seed
}

// Engine replays observations through the router sequentially and fills
// resulting orders immediately at their stated prices. Two runs over the
// same inputs produce identical results, trade IDs included.
type Engine struct {
	config Config
	router *router.Router
	state  *EquityState

	entropy *ulid.MonotonicEntropy
	marks   map[string]float64
	curve   []float64
	trades  []Trade
	wins    int
	losses  int
}

func NewEngine(config Config, r *router.Router) *Engine {
	if config.Name == "" {
		config.Name = "strategy_router"
	}
	if config.InitialCash == 0 {
		config.InitialCash = 10000
	}
	if config.SizingMode == "" {
		config.SizingMode = SizingOff
	}
	if config.KellyPayoff == 0 {
		config.KellyPayoff = 2
	}
	if config.DefaultMark == 0 {
		config.DefaultMark = 0.5
	}
	return &Engine{
		config:  config,
		router:  r,
		state:   NewEquityState(config.InitialCash),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(int64(config.Seed))), 0),
		marks:   make(map[string]float64),
	}
}

// LoadObservations reads a JSON array of observations from path.
func LoadObservations(path string) ([]market.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read observations: %w", err)
	}
	var out []market.Observation
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse observations %s: %w", path, err)
	}
	return out, nil
}

// Run replays the observation stream. A bad observation is skipped and the
// run continues; the equity curve still gets one point per input tick.
func (e *Engine) Run(ctx context.Context, observations []market.Observation) (Result, error) {
	observ.Log("run_start", map[string]any{
		"name":         e.config.Name,
		"observations": len(observations),
		"initial_cash": e.config.InitialCash,
		"sizing_mode":  e.config.SizingMode,
	})

	for tick, obs := range observations {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		if err := obs.Validate(); err != nil {
			var de *market.DataError
			if !errors.As(err, &de) {
				return Result{}, err
			}
			observ.IncCounter("observations_skipped_total", map[string]string{"reason": "invalid"})
			observ.Warn("observation_skipped", map[string]any{"tick": tick, "error": de.Error()})
			e.markEquity()
			continue
		}

		e.observeMark(obs)

		res, err := e.router.Route(ctx, obs)
		if err != nil {
			var de *market.DataError
			if !errors.As(err, &de) {
				return Result{}, err
			}
			e.markEquity()
			continue
		}

		for _, order := range res.Orders {
			e.fill(tick, obs, res.Decision, order)
		}
		e.markEquity()
	}

	result := e.finalize()
	observ.Log("run_end", map[string]any{
		"final_equity": result.FinalEquity,
		"total_return": result.TotalReturn,
		"trades":       result.TotalTrades,
		"max_drawdown": result.MaxDrawdown,
	})
	return result, nil
}

// observeMark refreshes the symbol's mark from the tick's own quotes.
func (e *Engine) observeMark(obs market.Observation) {
	prev, ok := e.marks[obs.Symbol]
	if !ok {
		prev = e.config.DefaultMark
	}
	e.marks[obs.Symbol] = obs.MarkPrice(prev)
}

func (e *Engine) markFor(symbol string) float64 {
	if m, ok := e.marks[symbol]; ok {
		return m
	}
	return e.config.DefaultMark
}

// markEquity appends the tick's equity point and exports it.
func (e *Engine) markEquity() {
	equity := e.state.Equity(e.markFor)
	e.curve = append(e.curve, equity)
	observ.SetGauge("backtest_equity", equity, nil)
}

func (e *Engine) fill(tick int, obs market.Observation, dec decision.Decision, order market.OrderInstruction) {
	if err := order.Validate(); err != nil {
		observ.IncCounter("orders_rejected_total", map[string]string{"reason": "invalid"})
		observ.Warn("order_rejected", map[string]any{"tick": tick, "error": err.Error()})
		return
	}

	size := e.sizedQuantity(order, dec)

	var filled, realized float64
	switch order.Side {
	case market.Buy:
		filled = e.state.ApplyBuy(order.Symbol, size, order.Price)
	case market.Sell:
		filled, realized = e.state.ApplySell(order.Symbol, size, order.Price)
		if filled > 0 {
			if realized > 0 {
				e.wins++
			} else {
				e.losses++
			}
		}
	}
	if filled == 0 {
		return
	}

	pos := e.state.Positions[order.Symbol]
	e.trades = append(e.trades, Trade{
		ID:            e.tradeID(tick, obs.Time),
		Tick:          tick,
		Timestamp:     obs.Time,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Price:         order.Price,
		Size:          filled,
		Cost:          filled * order.Price,
		PositionAfter: pos.Quantity,
		CashAfter:     e.state.Cash,
		Meta:          order.Meta,
	})
	observ.Debug("fill", map[string]any{
		"tick":     tick,
		"symbol":   order.Symbol,
		"side":     string(order.Side),
		"price":    order.Price,
		"size":     filled,
		"strategy": string(order.Strategy),
	})
}

// sizedQuantity applies the configured sizing policy to entries. Sells
// keep their strategy size; the fill clips them to the open position, so
// scaled-down entries still exit cleanly.
func (e *Engine) sizedQuantity(order market.OrderInstruction, dec decision.Decision) float64 {
	if order.Side != market.Buy {
		return order.Size
	}
	switch e.config.SizingMode {
	case SizingRiskScale:
		return order.Size * risk.ParamsFor(dec.RiskMode).PositionScale
	case SizingKelly:
		notional := risk.KellyNotional(e.state.Cash, dec.Confidence, e.config.KellyPayoff)
		if size := notional / order.Price; size < order.Size {
			return size
		}
		return order.Size
	default:
		return order.Size
	}
}

// tradeID derives a ULID from the observation time and seeded entropy, so
// identical runs emit identical IDs.
func (e *Engine) tradeID(tick int, ts time.Time) string {
	if ts.IsZero() {
		ts = time.Unix(int64(tick), 0).UTC()
	}
	return ulid.MustNew(ulid.Timestamp(ts), e.entropy).String()
}
