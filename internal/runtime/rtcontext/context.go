// Package rtcontext implements the execution context described in
// SPEC_FULL.md as C8 (spec.md §4.6): the object that owns every actor, its
// inbox, its backing scheduler.Operation, every registered monitor, and the
// event-group counter. It is the concrete type that satisfies actor.Runtime
// from the far side of the narrow-interface split the Design Notes call for
// (internal/runtime/actor never imports this package).
//
// Grounded on the teacher's ActorSystem (internal/baselib/actor/system.go),
// which plays the same "owns every actor + routes Create/Send" role, though
// here routing never touches a real goroutine scheduler — every mutation
// happens while the calling operation holds the scheduler's baton (G1/G2 in
// spec.md §3), so the maps below need no lock of their own.
package rtcontext

import (
	"context"
	"math"

	"github.com/roasbeef/loom/internal/log"
	"github.com/roasbeef/loom/internal/runtime/actor"
	"github.com/roasbeef/loom/internal/runtime/actorid"
	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runtime/event"
	"github.com/roasbeef/loom/internal/runtime/monitor"
	"github.com/roasbeef/loom/internal/runtime/queue"
	"github.com/roasbeef/loom/internal/runtime/scheduler"
)

var logger = log.Logger(log.SubsystemContext)

// maxActors bounds how many actor identities a single iteration may mint,
// a defensive guard against a runaway Create loop exhausting memory before
// any scheduling budget would otherwise catch it (SPEC_FULL.md §3,
// "WithMaxActors").
const maxActors = math.MaxInt32

// ExecutionContext owns the actors/operations/monitors maps for one test
// iteration and implements actor.Runtime.
type ExecutionContext struct {
	sched    *scheduler.Scheduler
	registry *actorid.Registry

	actors   map[any]*actor.Actor
	actorOps map[any]*scheduler.Operation
	monitors map[string]*monitor.Machine

	currentGroup map[any]event.Group

	assertions []*loomerrors.AssertionViolation
}

// New constructs an ExecutionContext driven by sched.
func New(sched *scheduler.Scheduler) *ExecutionContext {
	return &ExecutionContext{
		sched:        sched,
		registry:     actorid.NewRegistry(),
		actors:       make(map[any]*actor.Actor),
		actorOps:     make(map[any]*scheduler.Operation),
		monitors:     make(map[string]*monitor.Machine),
		currentGroup: make(map[any]event.Group),
	}
}

// RegisterMonitor adds m under its TypeTag; a later Monitor call against
// that type tag is delivered to it.
func (ctx *ExecutionContext) RegisterMonitor(m *monitor.Machine) {
	ctx.monitors[m.TypeTag] = m
}

// Monitors returns every registered monitor, for the liveness checker (C10)
// and trace/report rendering.
func (ctx *ExecutionContext) Monitors() map[string]*monitor.Machine {
	return ctx.monitors
}

// Actors returns a snapshot of every actor currently known to the context,
// for the liveness fingerprinter and report rendering.
func (ctx *ExecutionContext) Actors() map[any]*actor.Actor {
	return ctx.actors
}

// Assertions returns every AssertionViolation recorded so far this
// iteration.
func (ctx *ExecutionContext) Assertions() []*loomerrors.AssertionViolation {
	return ctx.assertions
}

// CreateRoot constructs the first actor of an iteration directly (there is
// no creator to attribute the Create scheduling point to), returning its
// identity and backing Operation so the caller can hand the Operation to
// scheduler.RunIteration as the root body.
func (ctx *ExecutionContext) CreateRoot(spec actor.ActorSpec) (actorid.ID, *scheduler.Operation, error) {
	return ctx.createActor(spec)
}

// Create implements actor.Runtime. It mints an identity, constructs the
// actor and its Behavior, enqueues the setup event if any, registers a new
// Operation with the scheduler, and yields at a scheduling point on the
// creator's own operation before returning (spec.md §5: Create is a
// suspension point).
func (ctx *ExecutionContext) Create(creator actorid.ID, spec actor.ActorSpec) (actorid.ID, error) {
	id, _, err := ctx.createActor(spec)
	if err != nil {
		return actorid.ID{}, err
	}

	ctx.schedulingPointForActor(creator)

	return id, nil
}

func (ctx *ExecutionContext) createActor(spec actor.ActorSpec) (actorid.ID, *scheduler.Operation, error) {
	if len(ctx.actors) >= maxActors {
		return actorid.ID{}, nil, &loomerrors.AssertionViolation{
			Msg: "actor identity space exhausted for this iteration",
		}
	}

	var id actorid.ID
	if spec.HasName {
		bound, ok := ctx.registry.BindName(spec.Name, spec.TypeTag)
		if !ok {
			return actorid.ID{}, nil, &loomerrors.NameAlreadyBound{Name: spec.Name}
		}
		id = bound
	} else {
		id = ctx.registry.NextNumeric(spec.TypeTag)
	}

	behavior := spec.NewBehavior()
	a := actor.New(id, behavior, ctx)
	ctx.actors[id.Key()] = a

	if spec.Setup != nil {
		a.Inbox.Enqueue(spec.Setup, event.NoGroup)
	}

	op := ctx.sched.Spawn(scheduler.ActorHandler, id.String(), &id, a.Run)
	ctx.actorOps[id.Key()] = op

	logger.DebugS(context.Background(), "actor created", "actor", id.String())

	return id, op, nil
}

// Send implements actor.Runtime: enqueues ev on target's inbox under from's
// current event group, then yields at a scheduling point on from's
// operation.
func (ctx *ExecutionContext) Send(from, target actorid.ID, ev event.Event, opts actor.SendOptions) error {
	targetActor, ok := ctx.actors[target.Key()]
	if !ok {
		// No actor of that identity was ever created (or it was
		// dropped after Halting); spec.md only defines drop semantics
		// for a *Halted* target, but an unknown target is the same
		// failure mode from the sender's point of view, so it is
		// treated identically rather than inventing a new error kind.
		ctx.schedulingPointForActor(from)
		return nil
	}

	if opts.AssertAtMost > 0 && targetActor.Inbox.CountKind(ev.Kind()) >= opts.AssertAtMost {
		return &loomerrors.QueueAssertViolated{EventKind: ev.Kind(), Limit: opts.AssertAtMost}
	}

	group := ctx.currentGroup[from.Key()]

	_, matched := targetActor.Inbox.Enqueue(ev, group)
	if matched {
		if op, ok := ctx.actorOps[target.Key()]; ok {
			ctx.sched.MarkEnabled(op)
		}
	}

	ctx.schedulingPointForActor(from)

	return nil
}

// Receive implements actor.Runtime. self's current group is updated to the
// delivered event's group before returning, so a subsequent Send from the
// same handler carries it forward (spec.md §3's "current_event_group").
func (ctx *ExecutionContext) Receive(self actorid.ID, op *scheduler.Operation, kinds []string, predicate func(event.Event) bool) (event.Event, event.Group, error) {
	a, ok := ctx.actors[self.Key()]
	if !ok || a.Inbox.IsHalted() {
		return nil, event.NoGroup, &loomerrors.ReceiveOnHaltedActor{Actor: self.String()}
	}

	for {
		env, outcome := a.Inbox.Receive(kinds, predicate)
		if outcome == queue.Got {
			ctx.currentGroup[self.Key()] = env.Group
			return env.Event, env.Group, nil
		}

		if !ctx.sched.SchedulingPoint(op, scheduler.Blocked, scheduler.BlockedOnReceive) {
			return nil, event.NoGroup, &loomerrors.ReceiveOnHaltedActor{Actor: self.String()}
		}

		if pending, ok := a.Inbox.TakePending(); ok {
			ctx.currentGroup[self.Key()] = pending.Group
			return pending.Event, pending.Group, nil
		}
	}
}

// Random implements actor.Runtime.
func (ctx *ExecutionContext) Random(op *scheduler.Operation, domain int) int {
	v := ctx.sched.NextInteger(domain)
	ctx.sched.SchedulingPoint(op, scheduler.Enabled, scheduler.BlockNone)
	return v
}

// RandomBool implements actor.Runtime.
func (ctx *ExecutionContext) RandomBool(op *scheduler.Operation) bool {
	v := ctx.sched.NextBoolean()
	ctx.sched.SchedulingPoint(op, scheduler.Enabled, scheduler.BlockNone)
	return v
}

// Assert implements actor.Runtime. A failed assertion is recorded and
// aborts the whole iteration (spec.md §4.2: "on false, records a safety
// violation and terminates the test iteration after draining"), not just
// the calling actor.
func (ctx *ExecutionContext) Assert(cond bool, msg string) {
	if cond {
		return
	}
	ctx.Abort(&loomerrors.AssertionViolation{Msg: msg})
}

// Abort implements actor.Runtime: records err verbatim as the iteration's
// failure and aborts it at the next yield, preserving whatever taxonomy
// Kind the caller already determined (UnhandledEvent, QueueAssertViolated,
// ...) rather than flattening every handler error into AssertionViolation.
func (ctx *ExecutionContext) Abort(err loomerrors.RuntimeError) {
	if violation, ok := err.(*loomerrors.AssertionViolation); ok {
		ctx.assertions = append(ctx.assertions, violation)
	}
	ctx.sched.Abort(err)
}

// Monitor implements actor.Runtime: delivers ev synchronously to the
// registered monitor of the given type, introducing no scheduling point
// (spec.md §4.4). A failed assertion inside the monitor handler aborts the
// iteration the same way Assert does; any other error (UnhandledEvent,
// MonitorReentrant) is returned to the caller.
func (ctx *ExecutionContext) Monitor(monitorType string, ev event.Event) error {
	m, ok := ctx.monitors[monitorType]
	if !ok {
		return nil
	}
	return m.ProcessEvent(ev)
}

// SchedulingPoint implements actor.Runtime, forwarding directly to the
// scheduler.
func (ctx *ExecutionContext) SchedulingPoint(op *scheduler.Operation, status scheduler.Status, reason scheduler.BlockReason) bool {
	return ctx.sched.SchedulingPoint(op, status, reason)
}

// SetDeferred implements actor.Runtime.
func (ctx *ExecutionContext) SetDeferred(self actorid.ID, kinds []string) {
	a, ok := ctx.actors[self.Key()]
	if !ok {
		return
	}
	for _, k := range kinds {
		a.Inbox.SetDeferred(k)
	}
}

// RecallDeferred implements actor.Runtime.
func (ctx *ExecutionContext) RecallDeferred(self actorid.ID, kinds []string) {
	a, ok := ctx.actors[self.Key()]
	if !ok {
		return
	}
	for _, k := range kinds {
		a.Inbox.RecallDeferred(k)
	}
}

func (ctx *ExecutionContext) schedulingPointForActor(id actorid.ID) bool {
	op, ok := ctx.actorOps[id.Key()]
	if !ok {
		return true
	}
	return ctx.sched.SchedulingPoint(op, scheduler.Enabled, scheduler.BlockNone)
}
