package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/pm-router/internal/decision"
	"github.com/Rajchodisetti/pm-router/internal/history"
	"github.com/Rajchodisetti/pm-router/internal/market"
	"github.com/Rajchodisetti/pm-router/internal/reasoning"
	"github.com/Rajchodisetti/pm-router/internal/strategy"
)

func newTestRouter(gen reasoning.Generator, cases []history.CaseRecord) *Router {
	engine := decision.New(decision.Config{}, gen)
	analyzer := history.NewAnalyzer(history.NewStore(cases), nil, history.Config{})

	reg := strategy.NewRegistry()
	reg.Register(strategy.NewOUArb(strategy.OUArbConfig{MinProfitRate: 0.02, DefaultSize: 100}))
	reg.Register(strategy.NewSniper(strategy.SniperConfig{MinPriceGap: 0.05, BaseSize: 100, MaxSize: 400}))
	reg.Register(strategy.Noop{})

	return New(engine, analyzer, reg)
}

func arbTick(hint string) market.Observation {
	return market.Observation{Symbol: "BTC-100K", RegimeHint: hint, PMAsk: 0.45, OpBid: 0.60}
}

func sniperTick(hint string) market.Observation {
	return market.Observation{Symbol: "BTC-100K", RegimeHint: hint, CurrentAsk: 0.41, TargetPrice: 0.60}
}

func TestRouteMixedSeriesStats(t *testing.T) {
	r := newTestRouter(nil, nil)
	ctx := context.Background()

	// tick 1: arb majority on an arb-shaped tick fires both legs
	res, err := r.Route(ctx, arbTick(decision.HintArb))
	require.NoError(t, err)
	assert.Len(t, res.Orders, 2)

	// tick 2: 1-1 tie keeps ou_arb, but the tick only carries sniper
	// quotes, so nothing fires and it counts as none
	res, err = r.Route(ctx, sniperTick(decision.HintSniper))
	require.NoError(t, err)
	assert.Empty(t, res.Orders)
	assert.Equal(t, decision.StrategyOUArb, res.Decision.Strategy)

	// tick 3: sniper majority on a sniper-shaped tick fires the entry
	res, err = r.Route(ctx, sniperTick(decision.HintSniper))
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, market.Buy, res.Orders[0].Side)

	stats := r.Stats()
	assert.Equal(t, 3, stats.TotalTicks)
	assert.Equal(t, 1, stats.Counts[strategy.NameOUArb])
	assert.Equal(t, 1, stats.Counts[strategy.NameSniper])
	assert.Equal(t, 1, stats.Counts[strategy.NameNoop])
	assert.InDelta(t, 1.0/3.0, stats.Fractions[strategy.NameSniper], 1e-9)
}

func TestRouteInvalidObservationAbortsOnlyItself(t *testing.T) {
	r := newTestRouter(nil, nil)
	ctx := context.Background()

	bad := arbTick(decision.HintArb)
	bad.PMAsk = -0.2
	_, err := r.Route(ctx, bad)
	require.Error(t, err)
	var de *market.DataError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, 0, r.Stats().TotalTicks, "invalid ticks must not count")

	res, err := r.Route(ctx, arbTick(decision.HintArb))
	require.NoError(t, err)
	assert.Len(t, res.Orders, 2, "router must keep working after a bad tick")
}

func TestRouteOrdersTaggedNotAltered(t *testing.T) {
	r := newTestRouter(nil, nil)

	res, err := r.Route(context.Background(), arbTick(decision.HintArb))
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)

	want := []struct {
		side  market.Side
		price float64
	}{{market.Buy, 0.45}, {market.Sell, 0.60}}
	for i, o := range res.Orders {
		assert.Equal(t, want[i].side, o.Side)
		assert.Equal(t, want[i].price, o.Price)
		assert.Equal(t, 100.0, o.Size)
		assert.Equal(t, strategy.NameOUArb, o.Strategy)

		assert.Equal(t, "strategy_router", o.Meta["routed_by"])
		assert.Equal(t, reasoning.MethodRuleBased, o.Meta["routing_mode"])
		assert.NotEmpty(t, o.Meta["ai_reason"])
		assert.Equal(t, string(res.Decision.RiskMode), o.Meta["ai_risk_mode"])
		assert.Equal(t, string(res.Decision.RiskMode), o.RiskMode)
		assert.NotEmpty(t, o.Meta["spread_pct"], "strategy meta must survive tagging")
	}
}

func TestRouteNoneDecisionIsNoOp(t *testing.T) {
	gen := &reasoning.MockGenerator{
		Response: `{"chosen_strategy": "none", "risk_mode": "defensive", "confidence": 0.4, "reason": "sit out"}`,
	}
	r := newTestRouter(gen, nil)

	res, err := r.Route(context.Background(), arbTick(decision.HintArb))
	require.NoError(t, err)
	assert.Empty(t, res.Orders)
	assert.Equal(t, decision.StrategyNone, res.Decision.Strategy)
	assert.Equal(t, 1, r.Stats().Counts[strategy.NameNoop])
}

func TestRoutePriorBuiltOncePerSymbol(t *testing.T) {
	gen := &reasoning.MockGenerator{
		Response: `{"pattern_name": "arbitrage_reversion", "confidence": 0.8, "typical_horizon": "3d", "comment": ""}`,
	}
	cases := []history.CaseRecord{
		{Symbol: "BTC-100K", Tag: "pm_arbitrage_reversion", Return3D: 0.02},
		{Symbol: "BTC-100K", Tag: "pm_arbitrage_reversion", Return3D: 0.03},
	}

	engine := decision.New(decision.Config{}, nil)
	analyzer := history.NewAnalyzer(history.NewStore(cases), gen, history.Config{})
	reg := strategy.NewRegistry()
	reg.Register(strategy.NewOUArb(strategy.OUArbConfig{}))
	r := New(engine, analyzer, reg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := r.Route(ctx, arbTick(decision.HintArb))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, gen.Calls, "prior should be analyzed once per symbol")

	dec, ok := r.LastDecision()
	require.True(t, ok)
	assert.Equal(t, decision.StrategyOUArb, dec.Strategy)
}
