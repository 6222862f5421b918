package market

import "fmt"

// Side of an order instruction.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderInstruction is produced by a strategy, tagged with routing metadata by
// the router, and owned by the backtest afterwards. Never mutated after
// tagging. Prices are prediction-market probabilities in (0,1).
type OrderInstruction struct {
	Symbol   string            `json:"symbol"`
	Side     Side              `json:"side"`
	Size     float64           `json:"size"`
	Price    float64           `json:"price"`
	Strategy string            `json:"strategy"`
	RiskMode string            `json:"risk_mode,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Validate fails closed on instructions the backtest must not fill.
func (oi *OrderInstruction) Validate() error {
	if oi.Side != Buy && oi.Side != Sell {
		return fmt.Errorf("invalid side %q", oi.Side)
	}
	if oi.Size <= 0 {
		return fmt.Errorf("order size must be positive, got %.4f", oi.Size)
	}
	if oi.Price <= 0 || oi.Price >= 1 {
		return fmt.Errorf("order price outside (0,1): %.4f", oi.Price)
	}
	return nil
}

// Notional is the cash value of the instruction at its stated price.
func (oi *OrderInstruction) Notional() float64 {
	return oi.Size * oi.Price
}
