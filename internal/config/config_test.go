package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradeforge/simsession/internal/risk"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaultsNonSafetyFields(t *testing.T) {
	path := writeConfig(t, `
session:
  quotes_path: data/quotes.jsonl
risk:
  mode: NORMAL
  max_daily_loss: 500
`)
	c, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "data/run", c.Session.RunDir)
	require.Equal(t, 10000.0, c.Session.StartEquityUSD)
	require.Equal(t, 0.5, c.Session.MomentumThresholdPct)
	require.Equal(t, 4, c.Tournament.Workers)
	require.Equal(t, risk.ModeNormal, c.Risk.Mode)
	require.Equal(t, 500.0, c.Risk.MaxDailyLoss)
	require.Positive(t, c.Friction.SpreadBps, "friction defaults apply without a policy file")
}

func TestLoadRefusesMissingRiskBlock(t *testing.T) {
	path := writeConfig(t, `
session:
  quotes_path: data/quotes.jsonl
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing risk block")
}

func TestLoadRefusesInvalidRiskCaps(t *testing.T) {
	path := writeConfig(t, `
risk:
  mode: NORMAL
  max_drawdown: 5
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_drawdown")
}

func TestLoadRefusesMissingFrictionFile(t *testing.T) {
	path := writeConfig(t, `
risk:
  mode: NORMAL
friction_policy_path: /nonexistent/friction.json
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadValidatesVariants(t *testing.T) {
	path := writeConfig(t, `
risk:
  mode: NORMAL
tournament:
  variants:
    - id: aggressive
      risk:
        mode: PANIC
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "aggressive")
}

func TestLoadTournamentBlock(t *testing.T) {
	path := writeConfig(t, `
risk:
  mode: NORMAL
safety:
  kill_switch_path: data/halt
tournament:
  workers: 2
  sensitivity: true
  variants:
    - id: baseline
      baseline: true
      risk: {mode: NORMAL}
      momentum_threshold_pct: 0.5
    - id: tight
      risk: {mode: NORMAL, max_notional_per_order: 50}
      momentum_threshold_pct: 0.5
      seed: 42
  windows:
    - id: full
    - {id: late, start_ts: 1700000060}
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, c.Tournament.Workers)
	require.True(t, c.Tournament.Sensitivity)
	require.Len(t, c.Tournament.Variants, 2)
	require.True(t, c.Tournament.Variants[0].Baseline)
	require.Equal(t, int64(42), c.Tournament.Variants[1].Seed)
	require.Equal(t, "data/halt", c.Safety.KillSwitchPath)
	require.Len(t, c.Tournament.Windows, 2)
	require.Equal(t, 1700000060.0, c.Tournament.Windows[1].StartTS)
}
