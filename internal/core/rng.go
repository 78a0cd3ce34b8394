package core

import "math/rand/v2"

// RNG draws the seeded random patterns used by the initializers.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0))}
}

// OneIn reports true with probability 1/n.
func (r *RNG) OneIn(n int) bool {
	if n <= 1 {
		return true
	}
	return r.r.IntN(n) == 0
}

// IntN returns a value in [0, n). n must be positive.
func (r *RNG) IntN(n int) int { return r.r.IntN(n) }

// Indices returns the indices in [0, n) selected with probability 1/oneIn.
func (r *RNG) Indices(n, oneIn int) []int {
	var out []int
	for i := range n {
		if r.OneIn(oneIn) {
			out = append(out, i)
		}
	}
	return out
}

