package friction

import "math/rand"

// RngSource supplies the deterministic randomness for fill simulation.
// Each fill draws from a fresh PRNG seeded with base seed + fill counter, so
// replays with the same seed and input stream are bit-identical regardless of
// how many draws an individual fill consumes.
type RngSource struct {
	seed  int64
	fills int64
}

// NewRngSource returns a source rooted at seed. A nil *RngSource passed to
// Apply disables sampling entirely (full fills, no random rejects).
func NewRngSource(seed int64) *RngSource {
	return &RngSource{seed: seed}
}

// NewRngSourceAt returns a source resumed at a given fill counter, for
// stateless replay where the counter lives in externally owned state.
func NewRngSourceAt(seed, fills int64) *RngSource {
	return &RngSource{seed: seed, fills: fills}
}

// Next returns the PRNG for the next fill and advances the fill counter.
func (r *RngSource) Next() *rand.Rand {
	rng := rand.New(rand.NewSource(r.seed + r.fills))
	r.fills++
	return rng
}

// Fills reports how many fills have drawn from this source.
func (r *RngSource) Fills() int64 { return r.fills }
