package scheduler

import "math/rand"

// PCTStrategy implements probabilistic concurrency testing (spec.md §4.7):
// a random priority order over operations plus k random priority-change
// points, which are the only places a high-priority operation can be
// demoted. Bugs that need d distinct interleavings to manifest are found
// with probability bounded away from zero using only k ≈ d change points,
// which is what makes PCT effective on schedules far too large to search
// exhaustively with DFS.
type PCTStrategy struct {
	seed     uint64
	k        int
	maxSteps int

	rng          *rand.Rand
	priorities   map[ID]int
	nextPriority int
	changePoints map[int]struct{}
}

// NewPCTStrategy returns a PCTStrategy with k priority-change points,
// sampled within the first maxSteps scheduling decisions of each iteration.
func NewPCTStrategy(seed uint64, k, maxSteps int) *PCTStrategy {
	if k < 1 {
		k = 1
	}
	if maxSteps < 1 {
		maxSteps = 1
	}
	return &PCTStrategy{seed: seed, k: k, maxSteps: maxSteps}
}

func (s *PCTStrategy) Name() string { return "pct" }

func (s *PCTStrategy) PrepareIteration(iteration int) {
	s.rng = rand.New(rand.NewSource(int64(s.seed) + int64(iteration)))
	s.priorities = make(map[ID]int)
	s.nextPriority = 0

	// At most maxSteps distinct change points exist in [1, maxSteps];
	// asking for more (k > maxSteps) would spin forever trying to draw
	// points that were already taken.
	numChangePoints := s.k
	if numChangePoints > s.maxSteps {
		numChangePoints = s.maxSteps
	}

	s.changePoints = make(map[int]struct{}, numChangePoints)
	for len(s.changePoints) < numChangePoints {
		s.changePoints[1+s.rng.Intn(s.maxSteps)] = struct{}{}
	}
}

func (s *PCTStrategy) priorityOf(op *Operation) int {
	p, ok := s.priorities[op.ID]
	if !ok {
		p = s.nextPriority
		s.nextPriority++
		s.priorities[op.ID] = p
	}
	return p
}

// demote pushes op to the lowest (numerically largest) priority, the only
// mutation a priority-change point is allowed to make.
func (s *PCTStrategy) demote(op *Operation) {
	s.priorities[op.ID] = s.nextPriority
	s.nextPriority++
}

func (s *PCTStrategy) highestPriority(enabled []*Operation) *Operation {
	best := enabled[0]
	bestPrio := s.priorityOf(best)
	for _, op := range enabled[1:] {
		p := s.priorityOf(op)
		if p < bestPrio {
			best, bestPrio = op, p
		}
	}
	return best
}

func (s *PCTStrategy) NextOperation(enabled []*Operation, current *Operation, step int) *Operation {
	for _, op := range enabled {
		s.priorityOf(op)
	}

	if _, isChangePoint := s.changePoints[step]; isChangePoint {
		s.demote(s.highestPriority(enabled))
	}

	return s.highestPriority(enabled)
}

func (s *PCTStrategy) NextBoolean() bool {
	return s.rng.Intn(2) == 1
}

func (s *PCTStrategy) NextInteger(maxExclusive int) int {
	if maxExclusive <= 0 {
		return 0
	}
	return s.rng.Intn(maxExclusive)
}

func (s *PCTStrategy) IsExhausted() bool { return false }

// FairPCTStrategy layers a starvation-forcing rule on top of PCTStrategy:
// any operation that has gone unscheduled for more than fairnessThreshold
// consecutive steps is selected unconditionally, regardless of its PCT
// priority, guaranteeing G3 (no starvation) at the cost of weakening the
// pure-priority coverage PCT otherwise gives.
type FairPCTStrategy struct {
	*PCTStrategy
	fairnessThreshold int
	step              int
}

// NewFairPCTStrategy returns a FairPCTStrategy; fairnessThreshold is the
// number of consecutive steps an enabled operation may be passed over
// before FairPCT forces its selection.
func NewFairPCTStrategy(seed uint64, k, maxSteps, fairnessThreshold int) *FairPCTStrategy {
	if fairnessThreshold < 1 {
		fairnessThreshold = 100
	}
	return &FairPCTStrategy{
		PCTStrategy:       NewPCTStrategy(seed, k, maxSteps),
		fairnessThreshold: fairnessThreshold,
	}
}

func (s *FairPCTStrategy) Name() string { return "fairpct" }

func (s *FairPCTStrategy) Fair() bool { return true }

func (s *FairPCTStrategy) PrepareIteration(iteration int) {
	s.step = 0
	s.PCTStrategy.PrepareIteration(iteration)
}

func (s *FairPCTStrategy) NextOperation(enabled []*Operation, current *Operation, step int) *Operation {
	s.step = step

	for _, op := range enabled {
		if op.lastRanStep >= 0 && step-op.lastRanStep > s.fairnessThreshold {
			op.lastRanStep = step
			return op
		}
	}

	chosen := s.PCTStrategy.NextOperation(enabled, current, step)
	chosen.lastRanStep = step
	return chosen
}
