package autopilot

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/tradeforge/simsession/internal/friction"
	"github.com/tradeforge/simsession/internal/market"
	"github.com/tradeforge/simsession/internal/observ"
	"github.com/tradeforge/simsession/internal/orders"
	"github.com/tradeforge/simsession/internal/risk"
)

// Config assembles everything one session needs. The risk and friction
// policies are validated before the first tick; a session never starts on a
// policy it would have to guess about.
type Config struct {
	RiskPolicy  risk.Policy
	Safety      risk.SafetyConfig
	Friction    friction.Policy
	Seed        int64 // 0 disables fill sampling
	StartEquity float64
}

// Stats are the per-run metrics the tournament scorer consumes.
type Stats struct {
	FinalEquityUSD float64 `json:"final_equity_usd"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	NumOrders      int     `json:"num_orders"`
	NumRiskRejects int     `json:"num_risk_rejects"`
	NumPostmortems int     `json:"num_postmortems"`
}

// Result is the outcome of processing one intent.
type Result struct {
	Decision  risk.Decision
	Reason    string
	Fill      *friction.FillResult
	OrderLine int // 1-based order-log line, 0 when no order was recorded
	Events    []risk.Event
}

// Autopilot drives one session tick by tick: evaluate, simulate the fill,
// book it, audit it, persist the risk state. It exclusively owns its
// RiskState for the session lifetime.
type Autopilot struct {
	cfg    Config
	engine *risk.Engine
	rng    *friction.RngSource
	orders *orders.Log
	events *risk.EventWriter
	store  *risk.SnapshotStore
	stats  Stats
}

// New builds a session rooted at runDir, resuming the risk state from a
// previous snapshot when one exists.
func New(cfg Config, runDir string) (*Autopilot, error) {
	if err := cfg.RiskPolicy.Validate(); err != nil {
		return nil, fmt.Errorf("risk policy: %w", err)
	}
	if err := cfg.Friction.Validate(); err != nil {
		return nil, fmt.Errorf("friction policy: %w", err)
	}

	store, err := risk.NewSnapshotStore(filepath.Join(runDir, "risk_state.json"))
	if err != nil {
		return nil, err
	}
	state, resumed, err := store.Load()
	if err != nil {
		return nil, err
	}
	if !resumed {
		state = risk.NewState(cfg.RiskPolicy.InitialMode(), cfg.StartEquity)
	}

	orderLog, err := orders.Open(filepath.Join(runDir, "orders.jsonl"))
	if err != nil {
		return nil, err
	}
	events, err := risk.NewEventWriter(filepath.Join(runDir, "events.jsonl"))
	if err != nil {
		return nil, err
	}

	var rng *friction.RngSource
	if cfg.Seed != 0 {
		rng = friction.NewRngSource(cfg.Seed)
	}

	observ.Log("session_start", map[string]any{
		"run_dir": runDir,
		"resumed": resumed,
		"mode":    string(state.Mode),
		"equity":  state.Equity,
	})
	return &Autopilot{
		cfg:    cfg,
		engine: risk.NewEngine(cfg.RiskPolicy, cfg.Safety, state),
		rng:    rng,
		orders: orderLog,
		events: events,
		store:  store,
	}, nil
}

func (a *Autopilot) State() *risk.State { return a.engine.State() }

// Stats returns the metrics accumulated so far, stamped with current equity.
func (a *Autopilot) Stats() Stats {
	s := a.stats
	s.FinalEquityUSD = a.engine.State().Equity
	return s
}

// ProcessIntent runs one intent through the full tick pipeline. The returned
// error is fatal for the session: it means the risk state could not be made
// durable and the next tick must not be read.
func (a *Autopilot) ProcessIntent(intent market.Intent, snap market.Snapshot, now time.Time) (Result, error) {
	state := a.engine.State()
	decision, reason := a.engine.Evaluate(intent, snap.Status, now)
	res := Result{Decision: decision, Reason: reason}

	switch decision {
	case risk.DecisionAllow:
		if err := a.execute(intent, snap, now, &res); err != nil {
			return res, err
		}

	case risk.DecisionSafe, risk.DecisionObserve:
		// Would-not-execute audit trail; no order is persisted.
		ev, err := a.events.Append(risk.Event{
			EventType: risk.EventIntentOnly,
			Severity:  risk.SeverityInfo,
			Message:   reason,
			Symbol:    intent.Symbol,
		})
		if err != nil {
			return res, err
		}
		res.Events = append(res.Events, ev)

	case risk.DecisionRiskReject:
		a.stats.NumRiskRejects++
		ev, err := a.events.Append(risk.Event{
			EventType: risk.EventRiskReject,
			Severity:  risk.SeverityWarning,
			Message:   reason,
			Symbol:    intent.Symbol,
		})
		if err != nil {
			return res, err
		}
		res.Events = append(res.Events, ev)
	}

	if dd := state.Drawdown() * 100; dd > a.stats.MaxDrawdownPct {
		a.stats.MaxDrawdownPct = dd
	}

	// Durable resumption point before the next tick is read.
	if err := a.store.Save(state); err != nil {
		return res, fmt.Errorf("persist risk state: %w", err)
	}
	return res, nil
}

// execute simulates the fill for an allowed intent, records it, books the
// realized pnl and runs the post-fill breach check.
func (a *Autopilot) execute(intent market.Intent, snap market.Snapshot, now time.Time, res *Result) error {
	state := a.engine.State()
	fill := friction.Apply(intent, snap, a.cfg.Friction, a.rng)
	res.Fill = &fill

	line, err := a.orders.Append(orders.Record{
		Symbol:   intent.Symbol,
		Side:     intent.ResolvedSide(),
		Qty:      intent.Qty,
		Price:    intent.Price,
		Decision: string(risk.DecisionAllow),
		SimFill:  &fill,
	})
	if err != nil {
		return err
	}
	res.OrderLine = line
	a.stats.NumOrders++
	observ.IncCounter("fills_total", map[string]string{"status": string(fill.FillStatus)})

	switch {
	case fill.Executed():
		// Realized pnl scales with the filled fraction of a closing intent.
		state.ApplyFill(intent.PnL*fill.FillFraction, fill.FeeUSD)
		state.LastExecTS = float64(now.UnixNano()) / 1e9

	default:
		// No position change; a rejected attempt may still carry a fee.
		state.ApplyFill(0, fill.FeeUSD)
		ev, err := a.events.Append(risk.Event{
			EventType: risk.EventFillAnomaly,
			Severity:  risk.SeverityWarning,
			Message:   fmt.Sprintf("fill %s: %s", fill.FillStatus, fill.RejectReason),
			Symbol:    intent.Symbol,
			Evidence:  evidenceRef(a.orders.Path(), line),
		})
		if err != nil {
			return err
		}
		res.Events = append(res.Events, ev)
	}

	if breached, metrics, msg := lossBreach(a.cfg.RiskPolicy, state); breached && a.cfg.RiskPolicy.DegradeOnLoss {
		if mode, fired := state.TriggerPostmortem(evidenceRef(a.orders.Path(), line)); fired {
			a.stats.NumPostmortems++
			ev, err := a.events.Append(risk.Event{
				EventType: risk.EventPostmortem,
				Severity:  risk.SeverityCritical,
				Message:   fmt.Sprintf("%s; mode degraded to %s", msg, mode),
				Symbol:    intent.Symbol,
				Metrics:   metrics,
				Evidence:  evidenceRef(a.orders.Path(), line),
			})
			if err != nil {
				return err
			}
			res.Events = append(res.Events, ev)
			observ.Warn("postmortem", map[string]any{"mode": string(mode), "evidence": ev.Evidence})
		}
	}
	return nil
}

// lossBreach checks the post-fill loss and drawdown caps. The breaching fill
// itself has already executed; the evidence points at its order-log line.
func lossBreach(pol risk.Policy, state *risk.State) (bool, map[string]float64, string) {
	if pol.MaxDailyLoss > 0 && state.DailyLoss > pol.MaxDailyLoss {
		return true, map[string]float64{
			"daily_loss":     state.DailyLoss,
			"max_daily_loss": pol.MaxDailyLoss,
			"drawdown":       state.Drawdown(),
			"max_drawdown":   pol.MaxDrawdown,
		}, fmt.Sprintf("daily loss %.2f breached cap %.2f", state.DailyLoss, pol.MaxDailyLoss)
	}
	if pol.MaxDrawdown > 0 && state.Drawdown() > pol.MaxDrawdown {
		return true, map[string]float64{
			"daily_loss":     state.DailyLoss,
			"max_daily_loss": pol.MaxDailyLoss,
			"drawdown":       state.Drawdown(),
			"max_drawdown":   pol.MaxDrawdown,
		}, fmt.Sprintf("drawdown %.2f%% breached cap %.2f%%", state.Drawdown()*100, pol.MaxDrawdown*100)
	}
	return false, nil, ""
}

func evidenceRef(path string, line int) string {
	return fmt.Sprintf("%s line %d", filepath.Base(path), line)
}
