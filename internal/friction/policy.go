package friction

import (
	"encoding/json"
	"fmt"
	"os"
)

// Policy configures the friction model. File-backed JSON, loaded once and
// immutable for the duration of a run. Stressed() derives the doubled-cost
// variant used by sensitivity checks.
type Policy struct {
	SchemaVersion   int     `json:"schema_version"`
	FeePerTrade     float64 `json:"fee_per_trade"`
	FeePerShare     float64 `json:"fee_per_share"`
	SpreadBps       float64 `json:"spread_bps"`
	SlippageBps     float64 `json:"slippage_bps"`
	LatencyMs       float64 `json:"latency_ms"`
	PartialFillProb float64 `json:"partial_fill_prob"`
	MaxFillFraction float64 `json:"max_fill_fraction"`
	RejectProb      float64 `json:"reject_prob"`
	FailProb        float64 `json:"fail_prob"`
	GapBps          float64 `json:"gap_bps"`
	GapThresholdPct float64 `json:"gap_threshold_pct"`
}

const policySchemaVersion = 1

// DefaultPolicy returns the documented defaults: modest costs, full fills,
// no random rejects.
func DefaultPolicy() Policy {
	return Policy{
		SchemaVersion:   policySchemaVersion,
		FeePerTrade:     0.0,
		FeePerShare:     0.005,
		SpreadBps:       2.0,
		SlippageBps:     1.0,
		LatencyMs:       150,
		PartialFillProb: 0.0,
		MaxFillFraction: 1.0,
		RejectProb:      0.0,
		FailProb:        0.0,
		GapBps:          0.0,
		GapThresholdPct: 0.0,
	}
}

// LoadPolicy reads and validates a friction policy file. A malformed or
// missing file is a fatal configuration error: the simulator refuses to run
// rather than substitute silently wrong friction costs.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read friction policy: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse friction policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("friction policy %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects values outside their meaningful ranges.
func (p Policy) Validate() error {
	if p.SchemaVersion != policySchemaVersion {
		return fmt.Errorf("unsupported schema_version %d (want %d)", p.SchemaVersion, policySchemaVersion)
	}
	if p.FeePerTrade < 0 || p.FeePerShare < 0 {
		return fmt.Errorf("fees must be non-negative")
	}
	if p.SpreadBps < 0 || p.SlippageBps < 0 || p.GapBps < 0 {
		return fmt.Errorf("cost bps must be non-negative")
	}
	for name, prob := range map[string]float64{
		"partial_fill_prob": p.PartialFillProb,
		"reject_prob":       p.RejectProb,
		"fail_prob":         p.FailProb,
	} {
		if prob < 0 || prob > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, prob)
		}
	}
	if p.MaxFillFraction <= 0 || p.MaxFillFraction > 1 {
		return fmt.Errorf("max_fill_fraction must be in (0,1], got %v", p.MaxFillFraction)
	}
	if p.LatencyMs < 0 {
		return fmt.Errorf("latency_ms must be non-negative")
	}
	if p.GapThresholdPct < 0 {
		return fmt.Errorf("gap_threshold_pct must be non-negative")
	}
	return nil
}

// Stressed returns a copy with every cost field doubled. Used by the
// tournament sensitivity check to test ranking robustness.
func (p Policy) Stressed() Policy {
	s := p
	s.FeePerTrade *= 2
	s.FeePerShare *= 2
	s.SpreadBps *= 2
	s.SlippageBps *= 2
	s.GapBps *= 2
	return s
}
