package market

import "math/rand"

// Generator produces a seeded random-walk quote series for synthetic
// sessions. Two generators with the same parameters emit identical series;
// randomness is never ambient.
type Generator struct {
	Symbol        string
	StartPrice    float64
	VolatilityPct float64 // per-tick standard deviation, in percent
	DriftPct      float64 // per-tick mean move, in percent
	Seed          int64
	StartTS       float64
	IntervalSec   float64
}

// Series generates n snapshots with PrevPrice pre-filled.
func (g Generator) Series(n int) []Snapshot {
	rng := rand.New(rand.NewSource(g.Seed))
	interval := g.IntervalSec
	if interval <= 0 {
		interval = 1
	}

	snaps := make([]Snapshot, 0, n)
	price := g.StartPrice
	prev := 0.0
	for i := 0; i < n; i++ {
		snaps = append(snaps, Snapshot{
			Symbol:    g.Symbol,
			Price:     price,
			TS:        g.StartTS + float64(i)*interval,
			PrevPrice: prev,
		})
		prev = price
		price *= 1 + (g.DriftPct+g.VolatilityPct*rng.NormFloat64())/100
		if price < 0.01 {
			price = 0.01
		}
	}
	return snaps
}
