package strategy

import (
	"reflect"
	"testing"

	"github.com/Rajchodisetti/pm-router/internal/market"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewOUArb(OUArbConfig{}))
	reg.Register(NewSniper(SniperConfig{}))
	reg.Register(Noop{})

	if got := reg.Names(); !reflect.DeepEqual(got, []string{"none", "ou_arb", "sniper"}) {
		t.Fatalf("names = %v", got)
	}
	if s, ok := reg.Get(NameOUArb); !ok || s.Name() != NameOUArb {
		t.Errorf("Get(ou_arb) = %v, %v", s, ok)
	}
	if _, ok := reg.Get("martingale"); ok {
		t.Errorf("unknown name should not resolve")
	}
}

func TestNoopEmitsNothing(t *testing.T) {
	orders, err := Noop{}.OnObservation(market.Observation{Symbol: "X", PMAsk: 0.4, OpBid: 0.6})
	if err != nil || len(orders) != 0 {
		t.Fatalf("noop returned %v, %v", orders, err)
	}
}
