package scheduler

import "math/rand"

// ProbabilisticStrategy (spec.md §4.7's "Probabilistic / Priority") flips a
// geometric coin with parameter p at every scheduling point: with
// probability 1-p it sticks with the operation that was just running (if
// still enabled), and with probability p it switches to a uniformly chosen
// enabled operation. The number of consecutive steps before a switch is
// geometrically distributed with success probability p, which biases
// exploration toward long uninterrupted runs of one operation punctuated by
// occasional context switches — a cheap way to bias coverage toward bugs
// that need only a handful of interleavings rather than an adversarial one.
type ProbabilisticStrategy struct {
	seed uint64
	p    float64
	rng  *rand.Rand
}

// NewProbabilisticStrategy returns a ProbabilisticStrategy with switch
// probability p, clamped to (0, 1].
func NewProbabilisticStrategy(seed uint64, p float64) *ProbabilisticStrategy {
	if p <= 0 {
		p = 0.1
	}
	if p > 1 {
		p = 1
	}
	return &ProbabilisticStrategy{seed: seed, p: p}
}

func (s *ProbabilisticStrategy) Name() string { return "probabilistic" }

func (s *ProbabilisticStrategy) PrepareIteration(iteration int) {
	s.rng = rand.New(rand.NewSource(int64(s.seed) + int64(iteration)))
}

func (s *ProbabilisticStrategy) NextOperation(enabled []*Operation, current *Operation, step int) *Operation {
	if current != nil && current.Enabled() && s.rng.Float64() >= s.p {
		return current
	}
	return enabled[s.rng.Intn(len(enabled))]
}

func (s *ProbabilisticStrategy) NextBoolean() bool {
	return s.rng.Intn(2) == 1
}

func (s *ProbabilisticStrategy) NextInteger(maxExclusive int) int {
	if maxExclusive <= 0 {
		return 0
	}
	return s.rng.Intn(maxExclusive)
}

func (s *ProbabilisticStrategy) IsExhausted() bool { return false }
