package scheduler

import (
	"fmt"

	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runtime/trace"
)

// ReplayStrategy reads a previously recorded Trace and plays its decisions
// back exactly (spec.md §4.7/§4.9). Any mismatch between what the trace
// says and what the live run's enabled set or nondeterministic domain
// allows is a ReplayDiverged error, surfaced via Diverged() so the
// iteration runner can stop immediately rather than limping on with a
// best-effort fallback choice.
type ReplayStrategy struct {
	trace    *trace.Trace
	cursor   *trace.Cursor
	diverged *loomerrors.ReplayDiverged
}

// NewReplayStrategy returns a ReplayStrategy over t.
func NewReplayStrategy(t *trace.Trace) *ReplayStrategy {
	return &ReplayStrategy{trace: t, cursor: trace.NewCursor(t)}
}

func (s *ReplayStrategy) Name() string { return "replay" }

func (s *ReplayStrategy) PrepareIteration(iteration int) {
	s.cursor = trace.NewCursor(s.trace)
	s.diverged = nil
}

// Diverged returns the first recorded divergence, if any.
func (s *ReplayStrategy) Diverged() *loomerrors.ReplayDiverged { return s.diverged }

func (s *ReplayStrategy) diverge(expected, actual string) {
	if s.diverged != nil {
		return
	}
	s.diverged = &loomerrors.ReplayDiverged{
		StepIndex: s.cursor.Position(),
		Expected:  expected,
		Actual:    actual,
	}
}

func (s *ReplayStrategy) NextOperation(enabled []*Operation, current *Operation, step int) *Operation {
	rec, ok := s.cursor.Next()
	if !ok {
		s.diverge("SchedulingChoice", "end of trace")
		return enabled[0]
	}
	if rec.Kind != trace.SchedulingChoice {
		s.diverge("SchedulingChoice", "NondetChoice")
		return enabled[0]
	}

	for _, op := range enabled {
		if uint64(op.ID) == rec.OperationID {
			return op
		}
	}

	s.diverge(
		fmt.Sprintf("operation %d enabled", rec.OperationID),
		"operation not in enabled set",
	)
	return enabled[0]
}

func (s *ReplayStrategy) NextBoolean() bool {
	rec, ok := s.cursor.Next()
	if !ok || rec.Kind != trace.NondetChoice {
		s.diverge("NondetChoice", "end of trace or SchedulingChoice")
		return false
	}
	return rec.Value != 0
}

func (s *ReplayStrategy) NextInteger(maxExclusive int) int {
	if maxExclusive <= 0 {
		return 0
	}
	rec, ok := s.cursor.Next()
	if !ok || rec.Kind != trace.NondetChoice {
		s.diverge("NondetChoice", "end of trace or SchedulingChoice")
		return 0
	}
	if int(rec.Value) >= maxExclusive {
		s.diverge(fmt.Sprintf("value < %d", maxExclusive), fmt.Sprintf("%d", rec.Value))
		return 0
	}
	return int(rec.Value)
}

func (s *ReplayStrategy) IsExhausted() bool {
	return s.diverged == nil && s.cursor.Position() >= s.trace.Len()
}
