package backtest

import "sort"

// Position is one symbol's open inventory.
type Position struct {
	Quantity      float64 `json:"quantity"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
}

// EquityState tracks cash and inventory across a run. The backtest engine
// owns it; nothing else mutates it.
type EquityState struct {
	Cash        float64             `json:"cash"`
	Positions   map[string]Position `json:"positions"`
	RealizedPnL float64             `json:"realized_pnl"`
}

func NewEquityState(initialCash float64) *EquityState {
	return &EquityState{Cash: initialCash, Positions: make(map[string]Position)}
}

// ApplyBuy fills a buy at its stated price, clipping size to available
// cash. It returns the filled size, zero when nothing could fill.
func (s *EquityState) ApplyBuy(symbol string, size, price float64) float64 {
	if size <= 0 || price <= 0 {
		return 0
	}
	if cost := size * price; cost > s.Cash {
		size = s.Cash / price
	}
	if size <= 0 {
		return 0
	}
	pos := s.Positions[symbol]
	total := pos.Quantity + size
	pos.AvgEntryPrice = (pos.AvgEntryPrice*pos.Quantity + price*size) / total
	pos.Quantity = total
	s.Positions[symbol] = pos
	s.Cash -= size * price
	return size
}

// ApplySell fills a sell at its stated price, clipping size to the open
// position; shorts are never taken. It returns the filled size and the
// realized P&L against the average entry.
func (s *EquityState) ApplySell(symbol string, size, price float64) (float64, float64) {
	pos := s.Positions[symbol]
	if size > pos.Quantity {
		size = pos.Quantity
	}
	if size <= 0 || price <= 0 {
		return 0, 0
	}
	realized := size * (price - pos.AvgEntryPrice)
	s.RealizedPnL += realized
	pos.Quantity -= size
	if pos.Quantity == 0 {
		pos.AvgEntryPrice = 0
	}
	s.Positions[symbol] = pos
	s.Cash += size * price
	return size, realized
}

// Equity marks every open position with markFor and adds cash. Symbols are
// visited in sorted order so the float sum is reproducible.
func (s *EquityState) Equity(markFor func(symbol string) float64) float64 {
	eq := s.Cash
	for _, symbol := range s.symbols() {
		pos := s.Positions[symbol]
		if pos.Quantity == 0 {
			continue
		}
		eq += pos.Quantity * markFor(symbol)
	}
	return eq
}

// TotalPosition sums open quantities across symbols.
func (s *EquityState) TotalPosition() float64 {
	var total float64
	for _, symbol := range s.symbols() {
		total += s.Positions[symbol].Quantity
	}
	return total
}

func (s *EquityState) symbols() []string {
	out := make([]string, 0, len(s.Positions))
	for symbol := range s.Positions {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}
