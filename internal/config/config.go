package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tradeforge/simsession/internal/friction"
	"github.com/tradeforge/simsession/internal/risk"
	"github.com/tradeforge/simsession/internal/tournament"
)

// Session configures one replay session.
type Session struct {
	QuotesPath           string  `yaml:"quotes_path"`
	RunDir               string  `yaml:"run_dir"`
	StartEquityUSD       float64 `yaml:"start_equity_usd"`
	Seed                 int64   `yaml:"seed"`
	MomentumThresholdPct float64 `yaml:"momentum_threshold_pct"`
}

// Tournament configures the variant sweep.
type Tournament struct {
	Workers      int                  `yaml:"workers"`
	WorkDir      string               `yaml:"work_dir"`
	ArtifactPath string               `yaml:"artifact_path"`
	Sensitivity  bool                 `yaml:"sensitivity"`
	Variants     []tournament.Variant `yaml:"variants"`
	Windows      []tournament.Window  `yaml:"windows"`
}

// Root is the top-level YAML configuration. Non-safety fields get documented
// defaults; safety-critical fields (the risk block, the friction policy file)
// must be explicit and valid or loading fails.
type Root struct {
	Session            Session           `yaml:"session"`
	Risk               *risk.Policy      `yaml:"risk"`
	Safety             risk.SafetyConfig `yaml:"safety"`
	FrictionPolicyPath string            `yaml:"friction_policy_path"`
	Tournament         Tournament        `yaml:"tournament"`

	// Friction is resolved at load time from FrictionPolicyPath, or the
	// documented defaults when no path is configured.
	Friction friction.Policy `yaml:"-"`
}

// Load reads and validates the root config. Safety-critical problems are
// hard failures: running on silently substituted risk caps is worse than not
// running.
func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}

	if c.Session.RunDir == "" {
		c.Session.RunDir = "data/run"
	}
	if c.Session.StartEquityUSD == 0 {
		c.Session.StartEquityUSD = 10000
	}
	if c.Session.MomentumThresholdPct == 0 {
		c.Session.MomentumThresholdPct = 0.5
	}
	if c.Tournament.Workers == 0 {
		c.Tournament.Workers = 4
	}
	if c.Tournament.WorkDir == "" {
		c.Tournament.WorkDir = "data/tournament"
	}
	if c.Tournament.ArtifactPath == "" {
		c.Tournament.ArtifactPath = "data/tournament.json"
	}

	if c.Risk == nil {
		return c, fmt.Errorf("config %s: missing risk block", path)
	}
	if err := c.Risk.Validate(); err != nil {
		return c, fmt.Errorf("config %s: risk: %w", path, err)
	}
	for i, v := range c.Tournament.Variants {
		if v.ID == "" {
			return c, fmt.Errorf("config %s: tournament variant %d: missing id", path, i)
		}
		if err := v.RiskPolicy.Validate(); err != nil {
			return c, fmt.Errorf("config %s: tournament variant %s: %w", path, v.ID, err)
		}
	}

	if c.FrictionPolicyPath != "" {
		c.Friction, err = friction.LoadPolicy(c.FrictionPolicyPath)
		if err != nil {
			return c, fmt.Errorf("config %s: %w", path, err)
		}
	} else {
		c.Friction = friction.DefaultPolicy()
	}
	return c, nil
}
