package router

import (
	"context"
	"strconv"

	"github.com/Rajchodisetti/pm-router/internal/decision"
	"github.com/Rajchodisetti/pm-router/internal/history"
	"github.com/Rajchodisetti/pm-router/internal/market"
	"github.com/Rajchodisetti/pm-router/internal/observ"
	"github.com/Rajchodisetti/pm-router/internal/strategy"
)

// RouteResult pairs the decision for one observation with the orders it
// produced.
type RouteResult struct {
	Decision decision.Decision
	Orders   []market.OrderInstruction
}

// StatsSnapshot reports where ticks actually routed. A tick counts toward
// a strategy only when that strategy produced orders; everything else,
// including a chosen strategy that saw no opportunity, counts as none.
type StatsSnapshot struct {
	TotalTicks int                `json:"total_ticks"`
	Counts     map[string]int     `json:"counts"`
	Fractions  map[string]float64 `json:"fractions"`
}

// Router runs one observation through the decision engine and hands it to
// the selected strategy. Orders come back tagged with routing metadata but
// otherwise untouched.
type Router struct {
	engine   *decision.Engine
	analyzer *history.Analyzer
	registry *strategy.Registry

	priors  map[string]history.Pattern // per-symbol prior, built once
	last    decision.Decision
	hasLast bool

	totalTicks int
	routed     map[string]int
}

func New(engine *decision.Engine, analyzer *history.Analyzer, registry *strategy.Registry) *Router {
	return &Router{
		engine:   engine,
		analyzer: analyzer,
		registry: registry,
		priors:   make(map[string]history.Pattern),
		routed:   make(map[string]int),
	}
}

// Route processes a single observation. A validation failure aborts only
// this observation; the router stays usable for the next one.
func (r *Router) Route(ctx context.Context, obs market.Observation) (RouteResult, error) {
	if err := obs.Validate(); err != nil {
		observ.IncCounter("observations_skipped_total", map[string]string{"reason": "invalid"})
		return RouteResult{}, err
	}

	r.engine.Observe(obs.RegimeHint)

	prior, ok := r.priors[obs.Symbol]
	if !ok {
		prior = r.analyzer.Analyze(ctx, history.Filter{Symbol: obs.Symbol})
		r.priors[obs.Symbol] = prior
	}

	dec := r.engine.Decide(ctx, prior)
	r.last = dec
	r.hasLast = true
	r.totalTicks++

	orders := r.dispatch(obs, dec)

	tag := strategy.NameNoop
	if len(orders) > 0 {
		tag = orders[0].Strategy
	}
	r.routed[tag]++

	for _, o := range orders {
		observ.IncCounter("orders_total", map[string]string{
			"side":     string(o.Side),
			"strategy": o.Strategy,
		})
	}
	observ.Debug("routed", map[string]any{
		"symbol":   obs.Symbol,
		"index":    obs.Index,
		"strategy": string(dec.Strategy),
		"realized": tag,
		"orders":   len(orders),
		"method":   dec.Method,
	})

	return RouteResult{Decision: dec, Orders: orders}, nil
}

func (r *Router) dispatch(obs market.Observation, dec decision.Decision) []market.OrderInstruction {
	if dec.Strategy == decision.StrategyNone {
		return nil
	}
	strat, ok := r.registry.Get(string(dec.Strategy))
	if !ok {
		observ.Warn("unknown_strategy", map[string]any{"strategy": string(dec.Strategy)})
		return nil
	}
	orders, err := strat.OnObservation(obs)
	if err != nil {
		observ.IncCounter("observations_skipped_total", map[string]string{"reason": "strategy_error"})
		observ.Warn("strategy_error", map[string]any{"strategy": strat.Name(), "error": err.Error()})
		return nil
	}

	confidence := strconv.FormatFloat(dec.Confidence, 'f', 4, 64)
	for i, o := range orders {
		meta := make(map[string]string, len(o.Meta)+5)
		for k, v := range o.Meta {
			meta[k] = v
		}
		meta["routed_by"] = "strategy_router"
		meta["routing_mode"] = dec.Method
		meta["ai_reason"] = dec.Reason
		meta["ai_risk_mode"] = string(dec.RiskMode)
		meta["ai_confidence"] = confidence
		orders[i].RiskMode = string(dec.RiskMode)
		orders[i].Meta = meta
	}
	return orders
}

// LastDecision returns the most recent decision, if any.
func (r *Router) LastDecision() (decision.Decision, bool) {
	return r.last, r.hasLast
}

// Stats snapshots realized routing counts and fractions.
func (r *Router) Stats() StatsSnapshot {
	counts := make(map[string]int, len(r.routed))
	fractions := make(map[string]float64, len(r.routed))
	for tag, n := range r.routed {
		counts[tag] = n
		if r.totalTicks > 0 {
			fractions[tag] = float64(n) / float64(r.totalTicks)
		}
	}
	return StatsSnapshot{TotalTicks: r.totalTicks, Counts: counts, Fractions: fractions}
}
