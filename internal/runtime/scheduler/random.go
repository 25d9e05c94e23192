package scheduler

import "math/rand"

// RandomStrategy chooses uniformly among enabled operations and uniformly
// distributed nondeterministic values. It gives no fairness guarantee
// across infinite runs (spec.md §4.7: "used for stress") but is the
// cheapest strategy to run many iterations of.
type RandomStrategy struct {
	seed uint64
	rng  *rand.Rand
}

// NewRandomStrategy returns a RandomStrategy seeded with seed. The same
// seed always produces the same sequence of choices for the same sequence
// of enabled-sets and domain sizes (P3's determinism requirement).
func NewRandomStrategy(seed uint64) *RandomStrategy {
	return &RandomStrategy{seed: seed, rng: rand.New(rand.NewSource(int64(seed)))}
}

func (s *RandomStrategy) Name() string { return "random" }

func (s *RandomStrategy) PrepareIteration(iteration int) {
	// Derive a fresh, deterministic per-iteration seed from the base seed
	// so successive iterations explore different interleavings while the
	// whole run stays reproducible from the single top-level seed.
	s.rng = rand.New(rand.NewSource(int64(s.seed) + int64(iteration)))
}

func (s *RandomStrategy) NextOperation(enabled []*Operation, current *Operation, step int) *Operation {
	return enabled[s.rng.Intn(len(enabled))]
}

func (s *RandomStrategy) NextBoolean() bool {
	return s.rng.Intn(2) == 1
}

func (s *RandomStrategy) NextInteger(maxExclusive int) int {
	if maxExclusive <= 0 {
		return 0
	}
	return s.rng.Intn(maxExclusive)
}

func (s *RandomStrategy) IsExhausted() bool { return false }
