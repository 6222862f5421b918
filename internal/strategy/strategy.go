package strategy

import (
	"sort"

	"github.com/Rajchodisetti/pm-router/internal/market"
)

// Registered strategy names.
const (
	NameOUArb  = "ou_arb"
	NameSniper = "sniper"
	NameNoop   = "none"
)

// Strategy turns one observation into zero or more orders. Implementations
// may keep per-run state (an open position); they are driven sequentially.
type Strategy interface {
	Name() string
	OnObservation(obs market.Observation) ([]market.OrderInstruction, error)
}

// Registry maps strategy names to implementations.
type Registry struct {
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Noop emits no orders. The router falls back to it when a decision names
// nothing runnable.
type Noop struct{}

func (Noop) Name() string { return NameNoop }

func (Noop) OnObservation(market.Observation) ([]market.OrderInstruction, error) {
	return nil, nil
}
