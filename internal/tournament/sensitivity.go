package tournament

import (
	"path/filepath"
)

// SensitivityReport is the outcome of the friction-stress robustness check.
// A ranking that survives doubled costs is considered stable; a flipped top
// spot alone is tolerated unless the whole order shuffled with it.
type SensitivityReport struct {
	Unstable          bool   `json:"unstable"`
	BaseTop           string `json:"base_top"`
	StressedTop       string `json:"stressed_top"`
	TotalDisplacement int    `json:"total_displacement"`
}

// Sensitivity re-runs the tournament with every friction cost doubled and
// compares the rankings. Instability requires both a different top entry and
// a total rank displacement of at least half the field (minimum 2).
func (r *Runner) Sensitivity(baseRanked []Entry) (SensitivityReport, error) {
	stressed, err := r.run(r.Friction.Stressed(), filepath.Join(r.WorkDir, "stressed"))
	if err != nil {
		return SensitivityReport{}, err
	}
	stressedRanked := Rank(stressed)

	rep := SensitivityReport{
		TotalDisplacement: displacement(baseRanked, stressedRanked),
	}
	if len(baseRanked) > 0 {
		rep.BaseTop = entryKey(baseRanked[0])
	}
	if len(stressedRanked) > 0 {
		rep.StressedTop = entryKey(stressedRanked[0])
	}

	threshold := len(baseRanked) / 2
	if threshold < 2 {
		threshold = 2
	}
	rep.Unstable = rep.BaseTop != rep.StressedTop && rep.TotalDisplacement >= threshold
	return rep, nil
}

func entryKey(e Entry) string {
	return e.Variant + "/" + e.Window
}

// displacement sums how far each entry moved between the two rankings.
func displacement(base, stressed []Entry) int {
	pos := make(map[string]int, len(stressed))
	for i, e := range stressed {
		pos[entryKey(e)] = i
	}
	total := 0
	for i, e := range base {
		if j, ok := pos[entryKey(e)]; ok {
			if d := i - j; d < 0 {
				total -= d
			} else {
				total += d
			}
		}
	}
	return total
}
