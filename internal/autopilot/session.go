package autopilot

import (
	"time"

	"github.com/tradeforge/simsession/internal/market"
	"github.com/tradeforge/simsession/internal/observ"
	"github.com/tradeforge/simsession/internal/portfolio"
)

// Session replays a quote series through one Autopilot with the fixed
// momentum test-bed signal. It owns the ledger and the last-price memory the
// signal needs.
type Session struct {
	ap           *Autopilot
	ledger       *portfolio.Ledger
	lastPrice    map[string]float64
	thresholdPct float64
}

func NewSession(ap *Autopilot, startCash, momentumThresholdPct float64) *Session {
	return &Session{
		ap:           ap,
		ledger:       portfolio.NewLedger(startCash),
		lastPrice:    make(map[string]float64),
		thresholdPct: momentumThresholdPct,
	}
}

func (s *Session) Ledger() *portfolio.Ledger { return s.ledger }

// Tick consumes one snapshot. ok is false when the tick produced no intent.
func (s *Session) Tick(snap market.Snapshot) (Result, bool, error) {
	intent, ok := deriveIntent(snap, s.lastPrice[snap.Symbol], s.thresholdPct, s.ledger)
	s.lastPrice[snap.Symbol] = snap.Price
	if !ok {
		return Result{}, false, nil
	}

	now := time.Unix(0, int64(snap.TS*1e9))
	res, err := s.ap.ProcessIntent(intent, snap, now)
	if err != nil {
		return res, true, err
	}
	if res.Fill != nil && res.Fill.Executed() {
		s.ledger.ApplyFill(intent.Symbol, res.Fill.FillQty, res.Fill.FillPrice, res.Fill.FeeUSD)
	}
	return res, true, nil
}

// Run replays the whole series and returns the session metrics.
func (s *Session) Run(quotes []market.Snapshot) (Stats, error) {
	for _, snap := range quotes {
		if _, _, err := s.Tick(snap); err != nil {
			return s.ap.Stats(), err
		}
	}
	stats := s.ap.Stats()
	observ.Log("session_done", map[string]any{
		"ticks":            len(quotes),
		"orders":           stats.NumOrders,
		"risk_rejects":     stats.NumRiskRejects,
		"postmortems":      stats.NumPostmortems,
		"final_equity_usd": stats.FinalEquityUSD,
		"max_drawdown_pct": stats.MaxDrawdownPct,
	})
	return stats, nil
}

// deriveIntent is the fixed momentum rule: a rise of at least thresholdPct
// since the last observation buys one unit; a fall of at least thresholdPct
// sells the whole long position, realizing pnl against average cost. It is a
// deterministic test-bed signal, not a strategy.
func deriveIntent(snap market.Snapshot, lastPrice, thresholdPct float64, ledger *portfolio.Ledger) (market.Intent, bool) {
	if lastPrice <= 0 || thresholdPct <= 0 {
		return market.Intent{}, false
	}
	changePct := (snap.Price - lastPrice) / lastPrice * 100

	switch {
	case changePct >= thresholdPct:
		return market.Intent{
			Symbol: snap.Symbol,
			Qty:    1,
			Price:  snap.Price,
			Side:   market.Buy,
		}, true

	case changePct <= -thresholdPct:
		if pos := ledger.Position(snap.Symbol); pos.Qty > 0 {
			return ledger.CloseIntent(snap.Symbol, snap.Price)
		}
	}
	return market.Intent{}, false
}
