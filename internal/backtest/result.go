package backtest

import (
	"time"

	"github.com/Rajchodisetti/pm-router/internal/market"
	"github.com/Rajchodisetti/pm-router/internal/router"
)

// Trade is one fill in the run's trade log.
type Trade struct {
	ID            string            `json:"id"`
	Tick          int               `json:"tick"`
	Timestamp     time.Time         `json:"timestamp"`
	Symbol        string            `json:"symbol"`
	Side          market.Side       `json:"side"`
	Price         float64           `json:"price"`
	Size          float64           `json:"size"`
	Cost          float64           `json:"cost"`
	PositionAfter float64           `json:"position_after"`
	CashAfter     float64           `json:"cash_after"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// Result summarizes one run.
type Result struct {
	StrategyName  string               `json:"strategy_name"`
	InitialCash   float64              `json:"initial_cash"`
	FinalCash     float64              `json:"final_cash"`
	FinalPosition float64              `json:"final_position"`
	FinalEquity   float64              `json:"final_equity"`
	TotalReturn   float64              `json:"total_return"`
	TotalTrades   int                  `json:"total_trades"`
	WinningTrades int                  `json:"winning_trades"`
	LosingTrades  int                  `json:"losing_trades"`
	MaxEquity     float64              `json:"max_equity"`
	MinEquity     float64              `json:"min_equity"`
	MaxDrawdown   float64              `json:"max_drawdown"` // peak-to-trough fraction
	EquityCurve   []float64            `json:"equity_curve"`
	Trades        []Trade              `json:"trades"`
	Routing       router.StatsSnapshot `json:"routing"`
}

func (e *Engine) finalize() Result {
	finalEquity := e.config.InitialCash
	if len(e.curve) > 0 {
		finalEquity = e.curve[len(e.curve)-1]
	}

	maxEq, minEq := finalEquity, finalEquity
	peak := finalEquity
	if len(e.curve) > 0 {
		peak = e.curve[0]
	}
	var maxDD float64
	for _, eq := range e.curve {
		if eq > maxEq {
			maxEq = eq
		}
		if eq < minEq {
			minEq = eq
		}
		if eq > peak {
			peak = eq
		}
		if peak > 0 {
			if dd := (peak - eq) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}

	var totalReturn float64
	if e.config.InitialCash != 0 {
		totalReturn = (finalEquity - e.config.InitialCash) / e.config.InitialCash
	}

	curve := e.curve
	if curve == nil {
		curve = []float64{}
	}
	trades := e.trades
	if trades == nil {
		trades = []Trade{}
	}

	return Result{
		StrategyName:  e.config.Name,
		InitialCash:   e.config.InitialCash,
		FinalCash:     e.state.Cash,
		FinalPosition: e.state.TotalPosition(),
		FinalEquity:   finalEquity,
		TotalReturn:   totalReturn,
		TotalTrades:   len(trades),
		WinningTrades: e.wins,
		LosingTrades:  e.losses,
		MaxEquity:     maxEq,
		MinEquity:     minEq,
		MaxDrawdown:   maxDD,
		EquityCurve:   curve,
		Trades:        trades,
		Routing:       e.router.Stats(),
	}
}
