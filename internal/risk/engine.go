package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/tradeforge/simsession/internal/market"
	"github.com/tradeforge/simsession/internal/observ"
)

// Engine evaluates intents against one policy and one session state.
// Evaluation is pure with respect to the policy; the only state mutations are
// the explicit recording calls (RegisterIntent, RecordReject) made as a
// documented side effect of evaluation.
type Engine struct {
	policy Policy
	safety SafetyConfig
	state  *State
}

func NewEngine(policy Policy, safety SafetyConfig, state *State) *Engine {
	return &Engine{policy: policy, safety: safety, state: state}
}

func (e *Engine) State() *State  { return e.state }
func (e *Engine) Policy() Policy { return e.policy }

// Evaluate runs the checks in fixed precedence order; the first failing check
// wins and short-circuits the rest. Cheap, fail-closed gates run before any
// risk math. Total over well-formed inputs: never returns an error.
func (e *Engine) Evaluate(intent market.Intent, status map[string]any, now time.Time) (Decision, string) {
	nowSec := float64(now.UnixNano()) / 1e9

	// 1. Data-health gate.
	if bad := market.BadStatusFlags(status); len(bad) > 0 {
		return e.reject(nowSec, fmt.Sprintf("data gate: %s", strings.Join(bad, ",")))
	}

	// 2. Kill switch, unconditionally before any rate or risk math.
	if e.safety.KillSwitchEngaged() {
		return e.reject(nowSec, "kill switch engaged")
	}

	// 3. Rate limit over the sliding 60s window. The new timestamp is
	// registered first, so the (max+1)-th intent inside the window trips it.
	count := e.state.RegisterIntent(nowSec)
	if e.policy.MaxOrdersPerMinute > 0 && count > e.policy.MaxOrdersPerMinute {
		return e.reject(nowSec, fmt.Sprintf("rate limit: %d intents in 60s > %d",
			count, e.policy.MaxOrdersPerMinute))
	}

	// 4. Minimum interval since the last executed (ALLOW) intent.
	if e.policy.MinIntervalSeconds > 0 && e.state.LastExecTS > 0 {
		if gap := nowSec - e.state.LastExecTS; gap < e.policy.MinIntervalSeconds {
			return e.reject(nowSec, fmt.Sprintf("min interval: %.1fs since last exec < %.1fs",
				gap, e.policy.MinIntervalSeconds))
		}
	}

	// 5. Notional cap.
	if e.policy.MaxNotionalPerOrder > 0 && intent.Notional() > e.policy.MaxNotionalPerOrder {
		return e.reject(nowSec, fmt.Sprintf("notional %.2f > max %.2f",
			intent.Notional(), e.policy.MaxNotionalPerOrder))
	}

	// 6. Loss/drawdown cap against current state. A breach is detected after
	// the fill that caused it, so this rejects the next intent, not the
	// breaching one.
	if e.policy.MaxDailyLoss > 0 && e.state.DailyLoss > e.policy.MaxDailyLoss {
		return e.reject(nowSec, fmt.Sprintf("daily loss %.2f > max %.2f",
			e.state.DailyLoss, e.policy.MaxDailyLoss))
	}
	if e.policy.MaxDrawdown > 0 && e.state.Drawdown() > e.policy.MaxDrawdown {
		return e.reject(nowSec, fmt.Sprintf("drawdown %.2f%% > max %.2f%%",
			e.state.Drawdown()*100, e.policy.MaxDrawdown*100))
	}

	// 7. Mode gate: degraded modes observe without executing.
	switch e.state.Mode {
	case ModeObserve:
		observ.IncCounter("risk_decisions_total", map[string]string{"decision": string(DecisionObserve)})
		return DecisionObserve, "mode OBSERVE: intent observed, not executed"
	case ModeSafe:
		observ.IncCounter("risk_decisions_total", map[string]string{"decision": string(DecisionSafe)})
		return DecisionSafe, "mode SAFE: intent observed, not executed"
	}

	observ.IncCounter("risk_decisions_total", map[string]string{"decision": string(DecisionAllow)})
	return DecisionAllow, ""
}

func (e *Engine) reject(nowSec float64, reason string) (Decision, string) {
	e.state.RecordReject(nowSec, reason)
	observ.IncCounter("risk_decisions_total", map[string]string{"decision": string(DecisionRiskReject)})
	return DecisionRiskReject, reason
}
