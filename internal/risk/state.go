package risk

import (
	"encoding/json"
	"fmt"
)

const (
	// rateWindowSeconds is the sliding window for the per-minute rate limit.
	rateWindowSeconds = 60.0
	// maxRejectNotes bounds the rolling reject history.
	maxRejectNotes = 10
)

// RejectNote is one entry of the rolling reject log. Best-effort audit data,
// no persistence guarantee beyond the state snapshot itself.
type RejectNote struct {
	TS     float64 `json:"ts"`
	Reason string  `json:"reason"`
}

// State is the mutable risk bookkeeping for exactly one session. It is owned
// by the Autopilot instance that created it; nothing else mutates it.
// Timestamps are unix seconds so snapshots round-trip exactly through JSON.
type State struct {
	Mode                Mode         `json:"mode"`
	IntentTimes         []float64    `json:"intent_times"`
	LastExecTS          float64      `json:"last_exec_ts"`
	RejectsRecent       []RejectNote `json:"rejects_recent"`
	DailyLoss           float64      `json:"daily_loss"`
	StartEquity         float64      `json:"start_equity"`
	PeakEquity          float64      `json:"peak_equity"`
	Equity              float64      `json:"equity"`
	PostmortemTriggered bool         `json:"postmortem_triggered"`
	EvidenceNotes       []string     `json:"evidence_notes"`
}

// NewState returns a fresh session state at the given starting equity.
func NewState(mode Mode, startEquity float64) *State {
	if !mode.Valid() {
		mode = ModeNormal
	}
	return &State{
		Mode:        mode,
		StartEquity: startEquity,
		PeakEquity:  startEquity,
		Equity:      startEquity,
	}
}

// RegisterIntent appends an intent timestamp, prunes entries older than the
// sliding window and returns the count inside the window.
func (s *State) RegisterIntent(nowSec float64) int {
	cutoff := nowSec - rateWindowSeconds
	kept := s.IntentTimes[:0]
	for _, ts := range s.IntentTimes {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	s.IntentTimes = append(kept, nowSec)
	return len(s.IntentTimes)
}

// RecordReject appends to the bounded rolling reject log.
func (s *State) RecordReject(nowSec float64, reason string) {
	s.RejectsRecent = append(s.RejectsRecent, RejectNote{TS: nowSec, Reason: reason})
	if n := len(s.RejectsRecent); n > maxRejectNotes {
		s.RejectsRecent = s.RejectsRecent[n-maxRejectNotes:]
	}
}

// ApplyFill books a realized pnl (net of fees) into equity and the loss
// accumulator. DailyLoss only ever grows.
func (s *State) ApplyFill(realizedPnL, feeUSD float64) {
	net := realizedPnL - feeUSD
	s.Equity += net
	if s.Equity > s.PeakEquity {
		s.PeakEquity = s.Equity
	}
	if net < 0 {
		s.DailyLoss += -net
	}
}

// Drawdown returns the fractional decline from peak equity, floored at zero.
func (s *State) Drawdown() float64 {
	if s.PeakEquity <= 0 {
		return 0
	}
	dd := (s.PeakEquity - s.Equity) / s.PeakEquity
	if dd < 0 {
		return 0
	}
	return dd
}

// TriggerPostmortem latches the one-shot degradation transition and records
// the evidence pointer. Returns the mode entered, or false if the latch
// already fired for this state's lifetime.
func (s *State) TriggerPostmortem(evidence string) (Mode, bool) {
	if s.PostmortemTriggered {
		return s.Mode, false
	}
	s.PostmortemTriggered = true
	s.Mode = s.Mode.Degraded()
	if evidence != "" {
		s.EvidenceNotes = append(s.EvidenceNotes, evidence)
	}
	return s.Mode, true
}

// Marshal serializes the state for snapshots and the stateless replay API.
func (s *State) Marshal() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal risk state: %w", err)
	}
	return b, nil
}

// UnmarshalState rehydrates a state previously produced by Marshal.
func UnmarshalState(b []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal risk state: %w", err)
	}
	if !s.Mode.Valid() {
		return nil, fmt.Errorf("risk state has invalid mode %q", s.Mode)
	}
	return &s, nil
}
