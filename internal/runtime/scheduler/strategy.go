package scheduler

// Strategy is the pluggable algorithm behind select_next() (spec.md §4.7).
// A Scheduler owns exactly one Strategy for its lifetime; strategies that
// explore the state space across many iterations (DFS) keep their own
// cross-iteration state and are handed a fresh PrepareIteration call at the
// start of each one.
type Strategy interface {
	// Name identifies the strategy for display and run-history records.
	Name() string

	// PrepareIteration resets any per-iteration counters (e.g. PCT's
	// random priority permutation). iteration is zero-based.
	PrepareIteration(iteration int)

	// NextOperation chooses which of the enabled operations runs next.
	// current is the operation that just yielded (nil for the very first
	// choice of an iteration). enabled is never empty when called.
	NextOperation(enabled []*Operation, current *Operation, step int) *Operation

	// NextBoolean returns the next controlled nondeterministic boolean,
	// consumed by RandomBool.
	NextBoolean() bool

	// NextInteger returns a controlled nondeterministic value in
	// [0, maxExclusive), consumed by Random(domain).
	NextInteger(maxExclusive int) int

	// IsExhausted reports whether the strategy has fully enumerated its
	// search space (only ever true for DFS); callers use this to stop
	// the iteration loop early instead of running out a fixed count.
	IsExhausted() bool
}

// Fair reports whether a strategy guarantees G3 (every Enabled operation is
// eventually selected). FairPCT is the only strategy implementing it in
// this runtime; the liveness checker (C10) only runs its temperature
// bookkeeping under fair strategies, per spec.md §4.8.
type Fair interface {
	Fair() bool
}
