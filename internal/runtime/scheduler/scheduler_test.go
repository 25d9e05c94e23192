package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
)

func TestTwoOperationsInterleaveDeterministicallyUnderDFS(t *testing.T) {
	sched := New(NewDFSStrategy(), Config{MaxUnfairSchedulingSteps: 1000})

	// DFS always resolves a tie between equally-enabled operations by
	// picking the lowest-id one first (spec.md §4.7's "leftmost branch"),
	// so root — having the lower id — keeps winning every scheduling
	// point it itself participates in; "other" only runs once root has
	// nothing left to do.
	var order []string
	err := sched.RunIteration(0, "root", func(rootOp *Operation) {
		order = append(order, "root-start")
		sched.Spawn(ActorHandler, "other", nil, func(op *Operation) {
			order = append(order, "other")
		})
		sched.SchedulingPoint(rootOp, Enabled, BlockNone)
		order = append(order, "root-end")
	})

	require.Nil(t, err)
	require.Equal(t, []string{"root-start", "root-end", "other"}, order)
}

func TestStepBudgetExceededHaltsIteration(t *testing.T) {
	sched := New(NewRandomStrategy(1), Config{MaxUnfairSchedulingSteps: 3})

	err := sched.RunIteration(0, "root", func(rootOp *Operation) {
		for {
			if !sched.SchedulingPoint(rootOp, Enabled, BlockNone) {
				return
			}
		}
	})

	require.NotNil(t, err)
	budgetErr, ok := err.(*loomerrors.StepBudgetExceeded)
	require.True(t, ok)
	require.Equal(t, 3, budgetErr.Budget)
	require.False(t, budgetErr.Fatal())
}

func TestAbortDrainsEnabledOperations(t *testing.T) {
	sched := New(NewDFSStrategy(), Config{MaxUnfairSchedulingSteps: 1000})

	// root blocks itself so DFS's lowest-id-first tie-break hands the
	// baton to aborter (not back to root) once it yields; aborter fires
	// Abort and completes, leaving bystander the sole still-Enabled
	// operation for drain to flush before RunIteration returns.
	var bystanderRan bool
	err := sched.RunIteration(0, "root", func(rootOp *Operation) {
		sched.Spawn(ActorHandler, "aborter", nil, func(op *Operation) {
			sched.Abort(&loomerrors.AssertionViolation{Msg: "boom"})
		})
		sched.Spawn(ActorHandler, "bystander", nil, func(op *Operation) {
			bystanderRan = true
		})
		sched.SchedulingPoint(rootOp, Blocked, BlockedOnReceive)
	})

	require.NotNil(t, err)
	require.Equal(t, "boom", err.(*loomerrors.AssertionViolation).Msg)
	require.True(t, bystanderRan)
}

func TestBlockedOperationNeverChosenUntilMarkedEnabled(t *testing.T) {
	sched := New(NewDFSStrategy(), Config{MaxUnfairSchedulingSteps: 1000})

	var waiterOp *Operation
	var resumed bool

	// DFS always picks the lowest-id enabled operation, so root
	// completing immediately after spawning both hands the baton to
	// waiter first, then (once waiter has blocked itself) to waker —
	// never back to root, which no longer exists in the enabled set.
	err := sched.RunIteration(0, "root", func(rootOp *Operation) {
		waiterOp = sched.Spawn(ActorHandler, "waiter", nil, func(op *Operation) {
			sched.SchedulingPoint(op, Blocked, BlockedOnReceive)
			resumed = true
		})
		sched.Spawn(ActorHandler, "waker", nil, func(op *Operation) {
			for waiterOp.Status != Blocked {
				sched.SchedulingPoint(op, Enabled, BlockNone)
			}
			sched.MarkEnabled(waiterOp)
		})
	})

	require.Nil(t, err)
	require.True(t, resumed)
}

func TestDFSExploresEveryInterleavingAcrossIterations(t *testing.T) {
	sched := New(NewDFSStrategy(), Config{MaxUnfairSchedulingSteps: 1000})
	strat := sched.Strategy().(*DFSStrategy)

	seen := make(map[string]bool)
	for i := 0; !strat.IsExhausted() && i < 20; i++ {
		var order []string
		err := sched.RunIteration(i, "root", func(rootOp *Operation) {
			sched.Spawn(ActorHandler, "a", nil, func(op *Operation) {
				order = append(order, "a")
			})
			sched.Spawn(ActorHandler, "b", nil, func(op *Operation) {
				order = append(order, "b")
			})
			sched.SchedulingPoint(rootOp, Enabled, BlockNone)
		})
		require.Nil(t, err)
		seen[order[0]+","+order[1]] = true
	}

	require.True(t, seen["a,b"])
	require.True(t, seen["b,a"])
}
