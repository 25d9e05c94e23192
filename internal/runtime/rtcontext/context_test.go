package rtcontext

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/loom/internal/runtime/actor"
	"github.com/roasbeef/loom/internal/runtime/actorid"
	"github.com/roasbeef/loom/internal/runtime/event"
	"github.com/roasbeef/loom/internal/runtime/monitor"
	"github.com/roasbeef/loom/internal/runtime/scheduler"
)

type testEvent struct {
	event.BaseEvent
	kind string
}

func (e testEvent) Kind() string { return e.kind }

func ev(kind string) event.Event { return testEvent{kind: kind} }

func newScheduler() *scheduler.Scheduler {
	return scheduler.New(scheduler.NewDFSStrategy(), scheduler.Config{
		MaxUnfairSchedulingSteps: 10_000,
	})
}

// echoBehavior forwards every "Ping" it receives to target as a "Pong", then
// halts once it sees a "Stop".
type echoBehavior struct {
	target  actorid.ID
	hasTgt  bool
	pings   *int
}

func (b *echoBehavior) HandleEvent(h *actor.Handle, e event.Event) error {
	switch e.Kind() {
	case "Ping":
		*b.pings++
		if b.hasTgt {
			return h.Send(b.target, ev("Pong"), actor.SendOptions{})
		}
		return nil
	case "Stop":
		h.HaltSelf()
		return nil
	default:
		return nil
	}
}

func (b *echoBehavior) ExceptionPolicy() actor.ExceptionPolicy { return actor.Propagate }

func TestCreateSendReceiveRoundTrip(t *testing.T) {
	sched := newScheduler()
	ctx := New(sched)

	pings := 0

	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		id, _, cerr := ctx.CreateRoot(actor.ActorSpec{
			TypeTag: "Echo",
			NewBehavior: func() actor.Behavior {
				return &echoBehavior{pings: &pings}
			},
		})
		require.NoError(t, cerr)

		require.NoError(t, ctx.Send(actorid.ID{}, id, ev("Ping"), actor.SendOptions{}))
		require.NoError(t, ctx.Send(actorid.ID{}, id, ev("Ping"), actor.SendOptions{}))
		require.NoError(t, ctx.Send(actorid.ID{}, id, ev("Stop"), actor.SendOptions{}))
	})

	require.Nil(t, err)
	require.Equal(t, 2, pings)
}

func TestSendToUnknownActorIsANoop(t *testing.T) {
	sched := newScheduler()
	ctx := New(sched)

	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		unknown := actorid.Numbered(999, "Ghost")
		serr := ctx.Send(actorid.ID{}, unknown, ev("Ping"), actor.SendOptions{})
		require.NoError(t, serr)
	})

	require.Nil(t, err)
}

func TestQueueAssertViolatedOnOverflow(t *testing.T) {
	sched := newScheduler()
	ctx := New(sched)

	var sendErr error

	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		id, _, cerr := ctx.CreateRoot(actor.ActorSpec{
			TypeTag: "Sink",
			NewBehavior: func() actor.Behavior {
				return &blockingBehavior{}
			},
		})
		require.NoError(t, cerr)

		require.NoError(t, ctx.Send(actorid.ID{}, id, ev("Data"), actor.SendOptions{AssertAtMost: 1}))
		sendErr = ctx.Send(actorid.ID{}, id, ev("Data"), actor.SendOptions{AssertAtMost: 1})
	})

	require.Nil(t, err)
	require.Error(t, sendErr)
}

// blockingBehavior never halts on its own; it is only used to keep an
// actor's inbox around long enough to observe a queue-assert violation.
type blockingBehavior struct{}

func (b *blockingBehavior) HandleEvent(h *actor.Handle, e event.Event) error {
	return nil
}

func (b *blockingBehavior) ExceptionPolicy() actor.ExceptionPolicy { return actor.Ignore }

func TestAssertFalseAbortsIteration(t *testing.T) {
	sched := newScheduler()
	ctx := New(sched)

	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		ctx.Assert(false, "invariant broken")
	})

	require.NotNil(t, err)
	require.Len(t, ctx.Assertions(), 1)
	require.Equal(t, "invariant broken", ctx.Assertions()[0].Msg)
}

func TestMonitorDispatchesToRegisteredMonitor(t *testing.T) {
	sched := newScheduler()
	ctx := New(sched)

	idle := monitor.NewState("Idle").Start().OnGoto("Trigger", "Armed").Build()
	armed := monitor.NewState("Armed").Build()

	m, merr := monitor.NewMachine(monitor.Config{
		TypeTag: "Guard",
		States:  []*monitor.State{idle, armed},
	})
	require.NoError(t, merr)
	ctx.RegisterMonitor(m)

	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		require.NoError(t, ctx.Monitor("Guard", ev("Trigger")))
	})

	require.Nil(t, err)
	require.Equal(t, "Armed", m.CurrentState())
}

func TestCreateFailsOnDuplicateName(t *testing.T) {
	sched := newScheduler()
	ctx := New(sched)

	var secondErr error

	err := sched.RunIteration(0, "root", func(rootOp *scheduler.Operation) {
		_, _, cerr := ctx.CreateRoot(actor.ActorSpec{
			TypeTag: "Named",
			Name:    "singleton",
			HasName: true,
			NewBehavior: func() actor.Behavior {
				return &blockingBehavior{}
			},
		})
		require.NoError(t, cerr)

		_, secondErr = ctx.Create(actorid.ID{}, actor.ActorSpec{
			TypeTag: "Named",
			Name:    "singleton",
			HasName: true,
			NewBehavior: func() actor.Behavior {
				return &blockingBehavior{}
			},
		})
	})

	require.Nil(t, err)
	require.Error(t, secondErr)
}
