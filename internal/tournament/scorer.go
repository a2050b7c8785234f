package tournament

import (
	"sort"

	"github.com/tradeforge/simsession/internal/autopilot"
)

// Entry is one (variant, window) tournament result. Immutable after the
// replay that produced it; the promotion layer consumes it as-is.
type Entry struct {
	RunID       string          `json:"run_id"`
	CandidateID string          `json:"candidate_id,omitempty"`
	BaselineID  string          `json:"baseline_id,omitempty"`
	Variant     string          `json:"variant"`
	Window      string          `json:"window"`
	Metrics     autopilot.Stats `json:"metrics"`
	Score       float64         `json:"score"`
	Safe        bool            `json:"safe"`
}

// Score is the fixed risk-first ordinal: drawdown and postmortems dominate,
// rejects and churn cost a little, equity breaks ties. It is not a
// market-realistic utility function and must not drift into one.
func Score(m autopilot.Stats) float64 {
	return -100*m.MaxDrawdownPct -
		50*float64(m.NumPostmortems) -
		5*float64(m.NumRiskRejects) -
		0.1*float64(m.NumOrders) +
		m.FinalEquityUSD/100
}

// Rank sorts entries by score descending. The sort is stable: equal scores
// keep their input order.
func Rank(entries []Entry) []Entry {
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// BestCandidate returns the top-ranked non-baseline entry that is also safe.
// When no candidate qualifies, none is proposed; an unsafe candidate is never
// promoted silently.
func BestCandidate(ranked []Entry) (Entry, bool) {
	for _, e := range ranked {
		if e.BaselineID != "" {
			continue
		}
		if e.Safe {
			return e, true
		}
	}
	return Entry{}, false
}
