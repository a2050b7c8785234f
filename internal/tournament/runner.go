package tournament

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/tradeforge/simsession/internal/autopilot"
	"github.com/tradeforge/simsession/internal/friction"
	"github.com/tradeforge/simsession/internal/id"
	"github.com/tradeforge/simsession/internal/market"
	"github.com/tradeforge/simsession/internal/observ"
	"github.com/tradeforge/simsession/internal/risk"
)

// Variant is one configuration entered in the tournament. Baselines compete
// in the ranking but are never proposed for promotion.
type Variant struct {
	ID                   string      `yaml:"id" json:"id"`
	Baseline             bool        `yaml:"baseline" json:"baseline"`
	RiskPolicy           risk.Policy `yaml:"risk" json:"risk"`
	MomentumThresholdPct float64     `yaml:"momentum_threshold_pct" json:"momentum_threshold_pct"`
	Seed                 int64       `yaml:"seed" json:"seed"`
}

// Window selects a half-open timestamp slice [StartTS, EndTS) of the quote
// series. Zero bounds are unbounded.
type Window struct {
	ID      string  `yaml:"id" json:"id"`
	StartTS float64 `yaml:"start_ts" json:"start_ts"`
	EndTS   float64 `yaml:"end_ts" json:"end_ts"`
}

func (w Window) contains(ts float64) bool {
	if w.StartTS > 0 && ts < w.StartTS {
		return false
	}
	if w.EndTS > 0 && ts >= w.EndTS {
		return false
	}
	return true
}

// Runner replays every (variant, window) pair through a fresh session.
// Sessions share no mutable state: each owns its RiskState and its log files
// under an isolated run directory, so the pairs parallelize freely.
type Runner struct {
	Variants    []Variant
	Windows     []Window
	Friction    friction.Policy
	Safety      risk.SafetyConfig
	Quotes      []market.Snapshot
	StartEquity float64
	Workers     int
	WorkDir     string
}

// Run executes all pairs and returns the entries in (variant, window) input
// order. The first session error aborts the result.
func (r *Runner) Run() ([]Entry, error) {
	return r.run(r.Friction, r.WorkDir)
}

func (r *Runner) run(pol friction.Policy, workDir string) ([]Entry, error) {
	type job struct {
		idx     int
		variant Variant
		window  Window
	}

	jobs := make(chan job)
	entries := make([]Entry, len(r.Variants)*len(r.Windows))
	errs := make(chan error, 1)

	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				entry, err := r.replay(j.variant, j.window, pol, workDir)
				if err != nil {
					select {
					case errs <- fmt.Errorf("variant %s window %s: %w", j.variant.ID, j.window.ID, err):
					default:
					}
					continue
				}
				entries[j.idx] = entry
			}
		}()
	}

	idx := 0
	for _, v := range r.Variants {
		for _, w := range r.Windows {
			jobs <- job{idx: idx, variant: v, window: w}
			idx++
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errs:
		return nil, err
	default:
	}

	observ.Log("tournament_done", map[string]any{
		"variants": len(r.Variants),
		"windows":  len(r.Windows),
		"entries":  len(entries),
	})
	return entries, nil
}

// replay runs one (variant, window) pair in its own run directory.
func (r *Runner) replay(v Variant, w Window, pol friction.Policy, workDir string) (Entry, error) {
	runID := id.New()
	runDir := filepath.Join(workDir, fmt.Sprintf("%s_%s_%s", v.ID, w.ID, runID))

	ap, err := autopilot.New(autopilot.Config{
		RiskPolicy:  v.RiskPolicy,
		Safety:      r.Safety,
		Friction:    pol,
		Seed:        v.Seed,
		StartEquity: r.StartEquity,
	}, runDir)
	if err != nil {
		return Entry{}, err
	}

	var quotes []market.Snapshot
	for _, q := range r.Quotes {
		if w.contains(q.TS) {
			quotes = append(quotes, q)
		}
	}

	stats, err := autopilot.NewSession(ap, r.StartEquity, v.MomentumThresholdPct).Run(quotes)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		RunID:   runID,
		Variant: v.ID,
		Window:  w.ID,
		Metrics: stats,
		Score:   Score(stats),
		Safe:    stats.NumPostmortems == 0,
	}
	if v.Baseline {
		entry.BaselineID = v.ID
	} else {
		entry.CandidateID = v.ID
	}
	return entry, nil
}
