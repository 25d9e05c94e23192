package scenario

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/loom/internal/runtime/rtcontext"
	"github.com/roasbeef/loom/internal/runtime/scheduler"
)

func newDFSScheduler() *scheduler.Scheduler {
	return scheduler.New(scheduler.NewDFSStrategy(), scheduler.Config{
		MaxUnfairSchedulingSteps: 10_000,
	})
}

func TestPingPongCompletesWithoutViolation(t *testing.T) {
	sched := newDFSScheduler()
	ctx := rtcontext.New(sched)

	scn := PingPong(3)

	var setupErr error
	runErr := sched.RunIteration(0, "root", func(_ *scheduler.Operation) {
		setupErr = scn(ctx)
	})

	require.NoError(t, setupErr)
	require.Nil(t, runErr)
	require.Empty(t, ctx.Assertions())
}

func TestPingPongIsRegisteredByName(t *testing.T) {
	s, ok := Lookup("pingpong")
	require.True(t, ok)
	require.NotNil(t, s)
}

func TestNamesIncludesRegisteredScenarios(t *testing.T) {
	require.Contains(t, Names(), "pingpong")
}
