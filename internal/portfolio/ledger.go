package portfolio

import (
	"math"

	"github.com/tradeforge/simsession/internal/market"
)

// Position is one symbol's holding on an average-cost basis. Qty is signed;
// negative means short.
type Position struct {
	Qty     float64 `json:"qty"`
	AvgCost float64 `json:"avg_cost"`
}

// Ledger is the caller-owned portfolio for one session. It is plain data
// with no locking: each session owns its ledger exclusively, and the
// stateless replay API hands callers a fresh copy per step.
type Ledger struct {
	CashUSD   float64             `json:"cash_usd"`
	Positions map[string]Position `json:"positions"`
}

// NewLedger returns an empty ledger with the given starting cash.
func NewLedger(cashUSD float64) *Ledger {
	return &Ledger{CashUSD: cashUSD, Positions: make(map[string]Position)}
}

// Clone returns an independent deep copy.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{CashUSD: l.CashUSD, Positions: make(map[string]Position, len(l.Positions))}
	for sym, pos := range l.Positions {
		c.Positions[sym] = pos
	}
	return c
}

// Position returns the holding for a symbol, zero-valued when flat.
func (l *Ledger) Position(symbol string) Position {
	return l.Positions[symbol]
}

// ApplyFill books a signed fill quantity at a price plus a fee, and returns
// the realized profit or loss on any closed quantity. Opening and adding
// re-average the cost basis; closing realizes against it; flipping through
// zero realizes the closed leg and opens the remainder at the fill price.
func (l *Ledger) ApplyFill(symbol string, fillQty, price, feeUSD float64) float64 {
	if l.Positions == nil {
		l.Positions = make(map[string]Position)
	}
	l.CashUSD -= fillQty*price + feeUSD
	if fillQty == 0 {
		return 0
	}

	pos := l.Positions[symbol]
	realized := 0.0

	switch {
	case pos.Qty == 0 || sameSign(pos.Qty, fillQty):
		total := math.Abs(pos.Qty) + math.Abs(fillQty)
		pos.AvgCost = (math.Abs(pos.Qty)*pos.AvgCost + math.Abs(fillQty)*price) / total
		pos.Qty += fillQty

	case math.Abs(fillQty) <= math.Abs(pos.Qty):
		closed := math.Abs(fillQty)
		realized = (price - pos.AvgCost) * closed * sign(pos.Qty)
		pos.Qty += fillQty
		if pos.Qty == 0 {
			pos.AvgCost = 0
		}

	default:
		closed := math.Abs(pos.Qty)
		realized = (price - pos.AvgCost) * closed * sign(pos.Qty)
		pos.Qty += fillQty
		pos.AvgCost = price
	}

	if pos.Qty == 0 {
		delete(l.Positions, symbol)
	} else {
		l.Positions[symbol] = pos
	}
	return realized
}

// MarkToMarket values the ledger at the given prices. Symbols without a
// price contribute their cost basis.
func (l *Ledger) MarkToMarket(prices map[string]float64) float64 {
	equity := l.CashUSD
	for sym, pos := range l.Positions {
		px, ok := prices[sym]
		if !ok {
			px = pos.AvgCost
		}
		equity += pos.Qty * px
	}
	return equity
}

// UnrealizedPnL returns the open profit or loss for one symbol at a price.
func (l *Ledger) UnrealizedPnL(symbol string, price float64) float64 {
	pos := l.Positions[symbol]
	return (price - pos.AvgCost) * pos.Qty
}

// CloseIntent builds a sell (or cover) intent that flattens the symbol,
// carrying the realized pnl the close would book at the given price.
// Returns false when there is nothing to close.
func (l *Ledger) CloseIntent(symbol string, price float64) (market.Intent, bool) {
	pos := l.Positions[symbol]
	if pos.Qty == 0 {
		return market.Intent{}, false
	}
	side := market.Sell
	if pos.Qty < 0 {
		side = market.Buy
	}
	return market.Intent{
		Symbol: symbol,
		Qty:    -pos.Qty,
		Price:  price,
		Side:   side,
		PnL:    (price - pos.AvgCost) * pos.Qty,
	}, true
}

func sameSign(a, b float64) bool { return (a > 0) == (b > 0) }

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
