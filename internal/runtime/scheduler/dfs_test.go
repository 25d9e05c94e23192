package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDFSStrategyExplainWithNoDecisionsRecorded(t *testing.T) {
	s := NewDFSStrategy()
	require.Equal(t, "(no decisions recorded)", s.Explain())
}

func TestDFSStrategyExplainRendersChoiceStack(t *testing.T) {
	s := NewDFSStrategy()

	require.Equal(t, 0, s.decide(3))
	require.Equal(t, 0, s.decide(2))

	require.Equal(t, "step 0: chose 0/2\n  step 1: chose 0/1", s.Explain())

	// Backtracking into iteration 1 flips the deepest not-fully-explored
	// frame (step 1 still has an unexplored branch); Explain should
	// reflect the new branch taken there, not the old one.
	s.PrepareIteration(1)
	require.Equal(t, "step 0: chose 0/2\n  step 1: chose 1/1", s.Explain())
}
