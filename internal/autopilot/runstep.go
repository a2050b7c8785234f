package autopilot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tradeforge/simsession/internal/friction"
	"github.com/tradeforge/simsession/internal/market"
	"github.com/tradeforge/simsession/internal/portfolio"
	"github.com/tradeforge/simsession/internal/risk"
)

// ExternalState is the caller-owned state threaded through RunStep. The core
// never retains any of it across calls: the ledger is deep-copied in, the
// risk state is rehydrated from its serialized form.
type ExternalState struct {
	RiskState  json.RawMessage    `json:"risk_state,omitempty"`
	Ledger     *portfolio.Ledger  `json:"ledger,omitempty"`
	LastPrices map[string]float64 `json:"last_prices,omitempty"`
	FillCount  int64              `json:"fill_count"`
}

// StepConfig is the immutable configuration for stateless stepping.
type StepConfig struct {
	RiskPolicy           risk.Policy
	Safety               risk.SafetyConfig
	Friction             friction.Policy
	MomentumThresholdPct float64
	Seed                 int64 // 0 disables fill sampling
	StartEquity          float64
}

// RunStep advances one tick without any session object: it rehydrates the
// risk state, derives the momentum intent, evaluates and simulates it,
// updates a copy of the caller's ledger and returns the new external state
// plus the events the tick emitted. No files are touched.
func RunStep(snap market.Snapshot, ext ExternalState, cfg StepConfig) (ExternalState, []risk.Event, error) {
	if err := cfg.RiskPolicy.Validate(); err != nil {
		return ext, nil, fmt.Errorf("risk policy: %w", err)
	}
	if err := cfg.Friction.Validate(); err != nil {
		return ext, nil, fmt.Errorf("friction policy: %w", err)
	}

	state, err := rehydrate(ext.RiskState, cfg)
	if err != nil {
		return ext, nil, err
	}
	ledger := portfolio.NewLedger(cfg.StartEquity)
	if ext.Ledger != nil {
		ledger = ext.Ledger.Clone()
	}
	lastPrices := make(map[string]float64, len(ext.LastPrices)+1)
	for sym, px := range ext.LastPrices {
		lastPrices[sym] = px
	}

	out := ExternalState{Ledger: ledger, LastPrices: lastPrices, FillCount: ext.FillCount}
	var events []risk.Event

	intent, ok := deriveIntent(snap, lastPrices[snap.Symbol], cfg.MomentumThresholdPct, ledger)
	lastPrices[snap.Symbol] = snap.Price
	if ok {
		events = stepIntent(intent, snap, cfg, state, ledger, &out.FillCount)
	}

	serialized, err := state.Marshal()
	if err != nil {
		return ext, nil, err
	}
	out.RiskState = serialized
	return out, events, nil
}

func rehydrate(raw json.RawMessage, cfg StepConfig) (*risk.State, error) {
	if len(raw) == 0 {
		return risk.NewState(cfg.RiskPolicy.InitialMode(), cfg.StartEquity), nil
	}
	return risk.UnmarshalState(raw)
}

// stepIntent is the in-memory mirror of the session tick pipeline: same
// evaluation, fill and breach semantics, events returned instead of logged.
func stepIntent(intent market.Intent, snap market.Snapshot, cfg StepConfig,
	state *risk.State, ledger *portfolio.Ledger, fillCount *int64) []risk.Event {

	engine := risk.NewEngine(cfg.RiskPolicy, cfg.Safety, state)
	now := time.Unix(0, int64(snap.TS*1e9))
	decision, reason := engine.Evaluate(intent, snap.Status, now)

	switch decision {
	case risk.DecisionSafe, risk.DecisionObserve:
		return []risk.Event{risk.Event{
			EventType: risk.EventIntentOnly,
			Severity:  risk.SeverityInfo,
			Message:   reason,
			Symbol:    intent.Symbol,
		}.Stamped()}

	case risk.DecisionRiskReject:
		return []risk.Event{risk.Event{
			EventType: risk.EventRiskReject,
			Severity:  risk.SeverityWarning,
			Message:   reason,
			Symbol:    intent.Symbol,
		}.Stamped()}
	}

	var rng *friction.RngSource
	if cfg.Seed != 0 {
		rng = friction.NewRngSourceAt(cfg.Seed, *fillCount)
	}
	fill := friction.Apply(intent, snap, cfg.Friction, rng)
	if rng != nil {
		*fillCount = rng.Fills()
	}

	var events []risk.Event
	if fill.Executed() {
		realized := ledger.ApplyFill(intent.Symbol, fill.FillQty, fill.FillPrice, fill.FeeUSD)
		state.ApplyFill(realized, fill.FeeUSD)
		state.LastExecTS = float64(now.UnixNano()) / 1e9
		events = append(events, risk.Event{
			EventType: risk.EventOrderExecuted,
			Severity:  risk.SeverityInfo,
			Message:   fmt.Sprintf("%s %s %.4g @ %.4f", intent.ResolvedSide(), intent.Symbol, fill.FillQty, fill.FillPrice),
			Symbol:    intent.Symbol,
			Metrics: map[string]float64{
				"fill_qty":   fill.FillQty,
				"fill_price": fill.FillPrice,
				"fee_usd":    fill.FeeUSD,
				"realized":   realized,
			},
		}.Stamped())
	} else {
		state.ApplyFill(0, fill.FeeUSD)
		events = append(events, risk.Event{
			EventType: risk.EventFillAnomaly,
			Severity:  risk.SeverityWarning,
			Message:   fmt.Sprintf("fill %s: %s", fill.FillStatus, fill.RejectReason),
			Symbol:    intent.Symbol,
		}.Stamped())
	}

	if breached, metrics, msg := lossBreach(cfg.RiskPolicy, state); breached && cfg.RiskPolicy.DegradeOnLoss {
		evidence := fmt.Sprintf("step %s ts=%.3f", intent.Symbol, snap.TS)
		if mode, fired := state.TriggerPostmortem(evidence); fired {
			events = append(events, risk.Event{
				EventType: risk.EventPostmortem,
				Severity:  risk.SeverityCritical,
				Message:   fmt.Sprintf("%s; mode degraded to %s", msg, mode),
				Symbol:    intent.Symbol,
				Metrics:   metrics,
				Evidence:  evidence,
			}.Stamped())
		}
	}
	return events
}
