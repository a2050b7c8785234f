package market

import "math"

// Side of an order intent.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Intent is a proposed trade. Created per tick, consumed immediately.
// Qty is signed; when Side is empty the sign encodes the side.
// PnL carries the realized profit/loss for closing intents.
type Intent struct {
	Symbol string  `json:"symbol"`
	Qty    float64 `json:"qty"`
	Price  float64 `json:"price"`
	Side   Side    `json:"side,omitempty"`
	PnL    float64 `json:"pnl,omitempty"`
}

// ResolvedSide returns the explicit side, or derives it from the quantity sign.
func (i Intent) ResolvedSide() Side {
	if i.Side == Buy || i.Side == Sell {
		return i.Side
	}
	if i.Qty < 0 {
		return Sell
	}
	return Buy
}

// Notional is the absolute dollar value of the intent.
func (i Intent) Notional() float64 {
	return math.Abs(i.Qty * i.Price)
}

// Snapshot is one read-only market observation for a tick.
// PrevPrice, when non-zero, enables gap detection in the fill simulator.
// Status holds the raw data-health payload from the feed; the risk engine
// scans it structurally for bad markers.
type Snapshot struct {
	Symbol    string         `json:"symbol"`
	Price     float64        `json:"price"`
	TS        float64        `json:"ts"` // unix seconds
	PrevPrice float64        `json:"prev_price,omitempty"`
	Status    map[string]any `json:"status,omitempty"`
}
