package risk

import (
	"fmt"
	"os"
)

// Mode is the protection level of a risk session. Degradation is one-way:
// NORMAL -> SAFE -> OBSERVE, with OBSERVE terminal. There is no automatic
// recovery path inside a run.
type Mode string

const (
	ModeNormal  Mode = "NORMAL"
	ModeSafe    Mode = "SAFE"
	ModeObserve Mode = "OBSERVE"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeNormal, ModeSafe, ModeObserve:
		return true
	}
	return false
}

// Degraded returns the next protection level down.
func (m Mode) Degraded() Mode {
	switch m {
	case ModeNormal:
		return ModeSafe
	default:
		return ModeObserve
	}
}

// Decision is the outcome of evaluating one intent.
// SAFE and OBSERVE are softer "would not execute" signals, distinct from a
// hard RISK_REJECT: the intent is audited but no order is placed.
type Decision string

const (
	DecisionAllow      Decision = "ALLOW"
	DecisionRiskReject Decision = "RISK_REJECT"
	DecisionSafe       Decision = "SAFE"
	DecisionObserve    Decision = "OBSERVE"
)

// Policy holds the risk caps for one session. Zero-valued caps are treated as
// unlimited; the config loader is responsible for refusing files that omit
// the block entirely.
type Policy struct {
	Mode                Mode    `yaml:"mode" json:"mode"`
	MaxOrdersPerMinute  int     `yaml:"max_orders_per_minute" json:"max_orders_per_minute"`
	MaxNotionalPerOrder float64 `yaml:"max_notional_per_order" json:"max_notional_per_order"`
	MaxDailyLoss        float64 `yaml:"max_daily_loss" json:"max_daily_loss"`
	MaxDrawdown         float64 `yaml:"max_drawdown" json:"max_drawdown"`
	MinIntervalSeconds  float64 `yaml:"min_interval_seconds" json:"min_interval_seconds"`
	DegradeOnLoss       bool    `yaml:"degrade_on_loss" json:"degrade_on_loss"`
}

func (p Policy) Validate() error {
	if p.Mode != "" && !p.Mode.Valid() {
		return fmt.Errorf("invalid risk mode %q", p.Mode)
	}
	if p.MaxOrdersPerMinute < 0 || p.MaxNotionalPerOrder < 0 ||
		p.MaxDailyLoss < 0 || p.MaxDrawdown < 0 || p.MinIntervalSeconds < 0 {
		return fmt.Errorf("risk caps must be non-negative")
	}
	if p.MaxDrawdown > 1 {
		return fmt.Errorf("max_drawdown is a fraction, got %v", p.MaxDrawdown)
	}
	return nil
}

// InitialMode resolves the configured starting mode, defaulting to NORMAL.
func (p Policy) InitialMode() Mode {
	if p.Mode.Valid() {
		return p.Mode
	}
	return ModeNormal
}

// SafetyConfig carries the persistent halt signal. It is injected into the
// engine so tests can point it at a temp dir instead of ambient global state.
type SafetyConfig struct {
	KillSwitchPath string `yaml:"kill_switch_path" json:"kill_switch_path"`
}

// KillSwitchEngaged reports whether the halt marker file exists. An empty
// path means no kill switch is configured.
func (s SafetyConfig) KillSwitchEngaged() bool {
	if s.KillSwitchPath == "" {
		return false
	}
	_, err := os.Stat(s.KillSwitchPath)
	return err == nil
}
