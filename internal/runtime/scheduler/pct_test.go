package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPCTPrepareIterationClampsChangePointsToMaxSteps guards against the
// k > maxSteps case: only maxSteps distinct change points exist in
// [1, maxSteps], so asking for more must not spin PrepareIteration forever.
func TestPCTPrepareIterationClampsChangePointsToMaxSteps(t *testing.T) {
	s := NewPCTStrategy(1, 2000, 10)

	require.NotPanics(t, func() {
		s.PrepareIteration(0)
	})
	require.LessOrEqual(t, len(s.changePoints), 10)
}

func TestPCTPrepareIterationDrawsExactlyKWhenUnderBudget(t *testing.T) {
	s := NewPCTStrategy(1, 4, 1000)

	s.PrepareIteration(0)

	require.Len(t, s.changePoints, 4)
}
