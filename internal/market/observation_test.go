package market

import (
	"errors"
	"math"
	"testing"
)

func TestObservationValidate(t *testing.T) {
	cases := []struct {
		name    string
		obs     Observation
		wantErr bool
	}{
		{"arb legs only", Observation{Symbol: "trump-2028", PMAsk: 0.45, OpBid: 0.60}, false},
		{"sniper quote only", Observation{Symbol: "fed-cut-march", CurrentAsk: 0.41, TargetPrice: 0.60}, false},
		{"exit quote only", Observation{Symbol: "fed-cut-march", BestBid: 0.61, TargetPrice: 0.60}, false},
		{"empty symbol", Observation{PMAsk: 0.45, OpBid: 0.60}, true},
		{"no usable fields", Observation{Symbol: "X"}, true},
		{"negative price", Observation{Symbol: "X", PMAsk: -0.1, OpBid: 0.6}, true},
		{"nan price", Observation{Symbol: "X", PMAsk: math.NaN(), OpBid: 0.6}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.obs.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil {
				var de *DataError
				if !errors.As(err, &de) {
					t.Fatalf("want *DataError, got %T", err)
				}
			}
		})
	}
}

func TestObservationValidateNormalizesSymbol(t *testing.T) {
	obs := Observation{Symbol: "  btc-100k ", PMAsk: 0.45, OpBid: 0.60}
	if err := obs.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if obs.Symbol != "BTC-100K" {
		t.Fatalf("symbol = %q, want BTC-100K", obs.Symbol)
	}
}

func TestMarkPrice(t *testing.T) {
	arb := Observation{PMAsk: 0.40, OpBid: 0.60}
	if got := arb.MarkPrice(0.5); got != 0.50 {
		t.Fatalf("arb mark = %v, want 0.50", got)
	}
	sniper := Observation{CurrentAsk: 0.41, TargetPrice: 0.60}
	if got := sniper.MarkPrice(0.5); got != 0.41 {
		t.Fatalf("sniper mark = %v, want 0.41", got)
	}
	book := Observation{CurrentAsk: 0.62, BestBid: 0.60}
	if got := book.MarkPrice(0.5); got != 0.61 {
		t.Fatalf("book mark = %v, want mid 0.61", got)
	}
	bidOnly := Observation{BestBid: 0.58}
	if got := bidOnly.MarkPrice(0.5); got != 0.58 {
		t.Fatalf("bid mark = %v, want 0.58", got)
	}
	empty := Observation{}
	if got := empty.MarkPrice(0.5); got != 0.5 {
		t.Fatalf("fallback mark = %v, want 0.5", got)
	}
}

func TestOrderInstructionValidate(t *testing.T) {
	ok := OrderInstruction{Symbol: "X", Side: Buy, Size: 100, Price: 0.45}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}
	bad := []OrderInstruction{
		{Symbol: "X", Side: "HOLD", Size: 100, Price: 0.45},
		{Symbol: "X", Side: Buy, Size: 0, Price: 0.45},
		{Symbol: "X", Side: Sell, Size: 10, Price: 0},
		{Symbol: "X", Side: Sell, Size: 10, Price: 1.0},
	}
	for i, oi := range bad {
		if err := oi.Validate(); err == nil {
			t.Fatalf("case %d: invalid order accepted: %+v", i, oi)
		}
	}
}
