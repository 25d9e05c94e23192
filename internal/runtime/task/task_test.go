package task

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/loom/internal/runtime/scheduler"
)

func newScheduler() *scheduler.Scheduler {
	return scheduler.New(scheduler.NewDFSStrategy(), scheduler.Config{
		MaxUnfairSchedulingSteps: 10_000,
	})
}

func TestRunAndWaitReturnsValue(t *testing.T) {
	sched := newScheduler()

	var got int
	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		tk := Run(sched, nil, "adder", func() int { return 21 + 21 })
		res := tk.Wait(rootOp)
		got, _ = res.Unpack()
	})

	require.Nil(t, err)
	require.Equal(t, 42, got)
}

func TestWhenAllCollectsAllResults(t *testing.T) {
	sched := newScheduler()

	var got []int
	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		tasks := []*Task[int]{
			Run(sched, nil, "t1", func() int { return 1 }),
			Run(sched, nil, "t2", func() int { return 2 }),
			Run(sched, nil, "t3", func() int { return 3 }),
		}
		res := WhenAll(sched, rootOp, tasks)
		got, _ = res.Unpack()
	})

	require.Nil(t, err)
	require.ElementsMatch(t, []int{1, 2, 3}, got)
}

func TestWhenAnyReturnsOnFirstCompletion(t *testing.T) {
	sched := newScheduler()

	var idx int
	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		tasks := []*Task[int]{
			Run(sched, nil, "t1", func() int { return 10 }),
			Run(sched, nil, "t2", func() int { return 20 }),
		}
		i, _ := WhenAny(sched, rootOp, tasks)
		idx = i
	})

	require.Nil(t, err)
	require.True(t, idx == 0 || idx == 1)
}

func TestYieldAllowsOtherOperationToRun(t *testing.T) {
	sched := newScheduler()

	var order []string
	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		tk := Run(sched, nil, "other", func() int {
			order = append(order, "other")
			return 0
		})
		Yield(sched, rootOp)
		order = append(order, "root")
		tk.Wait(rootOp)
	})

	require.Nil(t, err)
	require.Len(t, order, 2)
}

func TestDelayDoesNotBlockIndefinitely(t *testing.T) {
	sched := newScheduler()

	finished := false
	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		Delay(sched, rootOp, 3)
		finished = true
	})

	require.Nil(t, err)
	require.True(t, finished)
}
