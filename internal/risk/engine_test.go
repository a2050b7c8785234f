package risk

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tradeforge/simsession/internal/market"
)

func normalPolicy() Policy {
	return Policy{
		Mode:                ModeNormal,
		MaxOrdersPerMinute:  5,
		MaxNotionalPerOrder: 10000,
		MaxDailyLoss:        500,
		MaxDrawdown:         0.10,
		MinIntervalSeconds:  0,
	}
}

func buyIntent(qty, price float64) market.Intent {
	return market.Intent{Symbol: "AAPL", Qty: qty, Price: price}
}

func TestEvaluateAllowsCleanIntent(t *testing.T) {
	e := NewEngine(normalPolicy(), SafetyConfig{}, NewState(ModeNormal, 10000))

	dec, reason := e.Evaluate(buyIntent(10, 100), nil, time.Unix(1700000000, 0))
	if dec != DecisionAllow {
		t.Fatalf("decision=%s reason=%q, want ALLOW", dec, reason)
	}
}

func TestEvaluateDataGateFirst(t *testing.T) {
	// Degraded data refuses before any other check, even with the kill
	// switch engaged and the notional cap blown.
	dir := t.TempDir()
	kill := filepath.Join(dir, "halt")
	if err := os.WriteFile(kill, nil, 0644); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(normalPolicy(), SafetyConfig{KillSwitchPath: kill}, NewState(ModeNormal, 10000))
	status := map[string]any{"data_status": "stale"}

	dec, reason := e.Evaluate(buyIntent(1000, 1000), status, time.Unix(1700000000, 0))
	if dec != DecisionRiskReject {
		t.Fatalf("decision=%s, want RISK_REJECT", dec)
	}
	if !strings.Contains(reason, "data gate") {
		t.Errorf("reason=%q, want data gate to win precedence", reason)
	}
}

func TestEvaluateDataGateNestedFlags(t *testing.T) {
	e := NewEngine(normalPolicy(), SafetyConfig{}, NewState(ModeNormal, 10000))
	status := map[string]any{
		"health": map[string]any{"data_flags": []any{"ok", "suspect"}},
	}

	dec, reason := e.Evaluate(buyIntent(1, 100), status, time.Unix(1700000000, 0))
	if dec != DecisionRiskReject || !strings.Contains(reason, "suspect") {
		t.Fatalf("decision=%s reason=%q, want reject naming suspect", dec, reason)
	}
}

func TestEvaluateKillSwitch(t *testing.T) {
	dir := t.TempDir()
	kill := filepath.Join(dir, "halt")
	e := NewEngine(normalPolicy(), SafetyConfig{KillSwitchPath: kill}, NewState(ModeNormal, 10000))

	if dec, _ := e.Evaluate(buyIntent(1, 100), nil, time.Unix(1700000000, 0)); dec != DecisionAllow {
		t.Fatalf("decision=%s before engaging, want ALLOW", dec)
	}

	if err := os.WriteFile(kill, nil, 0644); err != nil {
		t.Fatal(err)
	}
	dec, reason := e.Evaluate(buyIntent(1, 100), nil, time.Unix(1700000001, 0))
	if dec != DecisionRiskReject || !strings.Contains(reason, "kill switch") {
		t.Fatalf("decision=%s reason=%q, want kill switch reject", dec, reason)
	}
}

func TestEvaluateRateLimit(t *testing.T) {
	pol := normalPolicy()
	pol.MaxOrdersPerMinute = 3
	e := NewEngine(pol, SafetyConfig{}, NewState(ModeNormal, 10000))
	base := time.Unix(1700000000, 0)

	for i := 0; i < 3; i++ {
		dec, reason := e.Evaluate(buyIntent(1, 100), nil, base.Add(time.Duration(i)*time.Second))
		if dec != DecisionAllow {
			t.Fatalf("intent %d: decision=%s reason=%q, want ALLOW", i, dec, reason)
		}
	}
	dec, reason := e.Evaluate(buyIntent(1, 100), nil, base.Add(3*time.Second))
	if dec != DecisionRiskReject || !strings.Contains(reason, "rate limit") {
		t.Fatalf("decision=%s reason=%q, want rate limit on intent max+1", dec, reason)
	}

	// Outside the sliding window the old intents age out. The rejected
	// attempt was registered too, so wait for the whole burst to expire.
	dec, _ = e.Evaluate(buyIntent(1, 100), nil, base.Add(65*time.Second))
	if dec != DecisionAllow {
		t.Fatalf("decision=%s after window expiry, want ALLOW", dec)
	}
}

func TestEvaluateMinInterval(t *testing.T) {
	pol := normalPolicy()
	pol.MinIntervalSeconds = 10
	st := NewState(ModeNormal, 10000)
	e := NewEngine(pol, SafetyConfig{}, st)
	base := time.Unix(1700000000, 0)

	// No prior execution: the interval check does not apply.
	if dec, _ := e.Evaluate(buyIntent(1, 100), nil, base); dec != DecisionAllow {
		t.Fatalf("first intent not allowed")
	}
	st.LastExecTS = float64(base.Unix())

	dec, reason := e.Evaluate(buyIntent(1, 100), nil, base.Add(5*time.Second))
	if dec != DecisionRiskReject || !strings.Contains(reason, "min interval") {
		t.Fatalf("decision=%s reason=%q, want min interval reject", dec, reason)
	}
	if dec, _ := e.Evaluate(buyIntent(1, 100), nil, base.Add(11*time.Second)); dec != DecisionAllow {
		t.Fatalf("intent past the interval not allowed")
	}
}

func TestEvaluateNotionalCap(t *testing.T) {
	e := NewEngine(normalPolicy(), SafetyConfig{}, NewState(ModeNormal, 10000))

	dec, reason := e.Evaluate(buyIntent(101, 100), nil, time.Unix(1700000000, 0))
	if dec != DecisionRiskReject || !strings.Contains(reason, "notional") {
		t.Fatalf("decision=%s reason=%q, want notional reject", dec, reason)
	}
	// Short intents use absolute notional.
	dec, _ = e.Evaluate(buyIntent(-101, 100), nil, time.Unix(1700000010, 0))
	if dec != DecisionRiskReject {
		t.Fatalf("decision=%s for oversized short, want RISK_REJECT", dec)
	}
}

func TestEvaluateLossAndDrawdownCaps(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*State)
		want   string
	}{
		{
			name:   "daily loss breach",
			mutate: func(s *State) { s.DailyLoss = 501 },
			want:   "daily loss",
		},
		{
			name: "drawdown breach",
			mutate: func(s *State) {
				s.PeakEquity = 10000
				s.Equity = 8800
			},
			want: "drawdown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewState(ModeNormal, 10000)
			tt.mutate(st)
			e := NewEngine(normalPolicy(), SafetyConfig{}, st)

			dec, reason := e.Evaluate(buyIntent(1, 100), nil, time.Unix(1700000000, 0))
			if dec != DecisionRiskReject || !strings.Contains(reason, tt.want) {
				t.Fatalf("decision=%s reason=%q, want reject containing %q", dec, reason, tt.want)
			}
		})
	}
}

func TestEvaluateModeGate(t *testing.T) {
	tests := []struct {
		mode Mode
		want Decision
	}{
		{ModeSafe, DecisionSafe},
		{ModeObserve, DecisionObserve},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			e := NewEngine(normalPolicy(), SafetyConfig{}, NewState(tt.mode, 10000))
			dec, reason := e.Evaluate(buyIntent(1, 100), nil, time.Unix(1700000000, 0))
			if dec != tt.want {
				t.Fatalf("decision=%s, want %s", dec, tt.want)
			}
			if reason == "" {
				t.Error("mode gate decisions must carry a reason")
			}
		})
	}
}

func TestEvaluateModeGateLast(t *testing.T) {
	// A hard breach still reports RISK_REJECT even in a degraded mode.
	st := NewState(ModeSafe, 10000)
	st.DailyLoss = 501
	e := NewEngine(normalPolicy(), SafetyConfig{}, st)

	dec, _ := e.Evaluate(buyIntent(1, 100), nil, time.Unix(1700000000, 0))
	if dec != DecisionRiskReject {
		t.Fatalf("decision=%s, want RISK_REJECT to outrank the mode gate", dec)
	}
}

func TestEvaluateZeroCapsUnlimited(t *testing.T) {
	e := NewEngine(Policy{Mode: ModeNormal}, SafetyConfig{}, NewState(ModeNormal, 10000))
	base := time.Unix(1700000000, 0)

	for i := 0; i < 100; i++ {
		dec, reason := e.Evaluate(buyIntent(1e6, 100), nil, base)
		if dec != DecisionAllow {
			t.Fatalf("intent %d: decision=%s reason=%q, want ALLOW with zero caps", i, dec, reason)
		}
	}
}

func TestRejectsAreRecorded(t *testing.T) {
	st := NewState(ModeNormal, 10000)
	e := NewEngine(normalPolicy(), SafetyConfig{}, st)

	e.Evaluate(buyIntent(1e6, 100), nil, time.Unix(1700000000, 0))
	if len(st.RejectsRecent) != 1 {
		t.Fatalf("RejectsRecent=%d, want 1", len(st.RejectsRecent))
	}
	if !strings.Contains(st.RejectsRecent[0].Reason, "notional") {
		t.Errorf("recorded reason=%q, want notional", st.RejectsRecent[0].Reason)
	}
}
