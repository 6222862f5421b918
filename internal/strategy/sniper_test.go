package strategy

import (
	"testing"

	"github.com/Rajchodisetti/pm-router/internal/market"
)

func sniperObs(ask, target float64) market.Observation {
	return market.Observation{Symbol: "ETH-5K", CurrentAsk: ask, TargetPrice: target}
}

func testSniperConfig() SniperConfig {
	return SniperConfig{MinPriceGap: 0.05, BaseSize: 100, MaxSize: 400, GasCost: 1}
}

func TestSniperEntry(t *testing.T) {
	s := NewSniper(testSniperConfig())

	orders, err := s.OnObservation(sniperObs(0.41, 0.60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want exactly one entry", len(orders))
	}

	buy := orders[0]
	if buy.Side != market.Buy || buy.Price != 0.41 {
		t.Errorf("entry = %+v, want BUY @ 0.41", buy)
	}
	if buy.Size != 380 {
		t.Errorf("size = %v, want 380 (gap 0.19 scales base 100 by 3.8)", buy.Size)
	}
	if buy.Strategy != NameSniper {
		t.Errorf("order tagged %q, want sniper", buy.Strategy)
	}
	if buy.Meta["price_gap"] != "0.190000" {
		t.Errorf("price_gap meta = %q", buy.Meta["price_gap"])
	}
	if err := buy.Validate(); err != nil {
		t.Errorf("emitted invalid order: %v", err)
	}
}

func TestSniperGapBelowMinimum(t *testing.T) {
	s := NewSniper(testSniperConfig())
	if orders, _ := s.OnObservation(sniperObs(0.57, 0.60)); len(orders) != 0 {
		t.Fatalf("gap 0.03 under min 0.05 should not fire, got %d orders", len(orders))
	}
}

func TestSniperGasSwampsProfit(t *testing.T) {
	cfg := testSniperConfig()
	cfg.GasCost = 6
	s := NewSniper(cfg)

	// gap 0.05 clears the minimum but 0.05*100 - 6 < 0
	if orders, _ := s.OnObservation(sniperObs(0.55, 0.60)); len(orders) != 0 {
		t.Fatalf("negative expected profit should not fire, got %d orders", len(orders))
	}
}

func TestSniperSizeMonotoneAndCapped(t *testing.T) {
	tests := []struct {
		ask  float64
		size float64
	}{
		{0.55, 100}, // gap 0.05
		{0.50, 200}, // gap 0.10
		{0.41, 380}, // gap 0.19
		{0.20, 400}, // gap 0.40, capped
	}
	for _, tt := range tests {
		s := NewSniper(testSniperConfig())
		orders, _ := s.OnObservation(sniperObs(tt.ask, 0.60))
		if len(orders) != 1 {
			t.Fatalf("ask %v: got %d orders", tt.ask, len(orders))
		}
		if orders[0].Size != tt.size {
			t.Errorf("ask %v: size = %v, want %v", tt.ask, orders[0].Size, tt.size)
		}
	}
}

func TestSniperTakeProfitCycle(t *testing.T) {
	s := NewSniper(testSniperConfig())

	entry, _ := s.OnObservation(sniperObs(0.41, 0.60))
	if len(entry) != 1 {
		t.Fatalf("entry did not fire")
	}

	exitObs := market.Observation{Symbol: "ETH-5K", BestBid: 0.61, TargetPrice: 0.60}
	exits, _ := s.OnObservation(exitObs)
	if len(exits) != 1 {
		t.Fatalf("got %d orders at target, want take-profit sell", len(exits))
	}
	sell := exits[0]
	if sell.Side != market.Sell || sell.Price != 0.61 || sell.Size != 380 {
		t.Errorf("exit = %+v, want SELL 380 @ 0.61", sell)
	}
	if sell.Meta["exit"] != "take_profit" {
		t.Errorf("exit meta = %q", sell.Meta["exit"])
	}

	// position is flat again, entries may fire
	reentry, _ := s.OnObservation(sniperObs(0.41, 0.60))
	if len(reentry) != 1 {
		t.Errorf("flat sniper should re-enter, got %d orders", len(reentry))
	}
}

func TestSniperHoldingBlocksReentry(t *testing.T) {
	s := NewSniper(testSniperConfig())
	if orders, _ := s.OnObservation(sniperObs(0.41, 0.60)); len(orders) != 1 {
		t.Fatalf("entry did not fire")
	}

	// another attractive entry while holding, bid still below target
	held := sniperObs(0.40, 0.60)
	held.BestBid = 0.45
	if orders, _ := s.OnObservation(held); len(orders) != 0 {
		t.Fatalf("holding sniper should wait, got %d orders", len(orders))
	}
}
