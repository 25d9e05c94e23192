package actor

import (
	"context"

	"github.com/roasbeef/loom/internal/log"
	"github.com/roasbeef/loom/internal/runtime/actorid"
	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runtime/event"
	"github.com/roasbeef/loom/internal/runtime/queue"
	"github.com/roasbeef/loom/internal/runtime/scheduler"
)

var logger = log.Logger(log.SubsystemActor)

// Status is an actor's domain-level lifecycle status from spec.md §3's data
// model, distinct from (but kept in lockstep with) its backing
// scheduler.Operation's scheduling Status — this one is about what the
// actor is doing, the other about whether the scheduler may run it.
type Status int

const (
	Idle Status = iota
	Enqueued
	Running
	Waiting
	Halted
)

func (s Status) String() string {
	switch s {
	case Enqueued:
		return "Enqueued"
	case Running:
		return "Running"
	case Waiting:
		return "Waiting"
	case Halted:
		return "Halted"
	default:
		return "Idle"
	}
}

// Actor is a mailbox-driven reactive object: the C4 base every state machine
// and plain reactive object in this runtime is built from.
type Actor struct {
	ID     actorid.ID
	Inbox  *queue.Inbox
	Status Status

	behavior Behavior
	rt       Runtime
	op       *scheduler.Operation
}

// New constructs an Actor. Run must be handed to scheduler.Spawn to actually
// drive it; New does no scheduling itself.
func New(id actorid.ID, behavior Behavior, rt Runtime) *Actor {
	return &Actor{
		ID:       id,
		Inbox:    queue.New(),
		Status:   Idle,
		behavior: behavior,
		rt:       rt,
	}
}

// Run is the actor's handler loop (spec.md §4.2), suitable as the body
// function passed to scheduler.Scheduler.Spawn. It runs until the actor
// Halts or the iteration's context is cancelled.
func (a *Actor) Run(op *scheduler.Operation) {
	a.op = op
	h := NewHandle(a.ID, a.rt, op)
	a.Status = Running

	for {
		ev, group, ok := a.nextEvent(h)
		if !ok {
			// Cancelled mid-wait; wind down without running a
			// final handler.
			a.haltInbox()
			return
		}

		if ev.Kind() == event.Halt {
			logger.DebugS(context.Background(), "actor halting", "actor", a.ID.String())
			a.haltInbox()
			return
		}

		h.currentGroup = group
		err := a.behavior.HandleEvent(h, ev)
		if shouldHalt := a.handleError(err); shouldHalt {
			a.haltInbox()
			return
		}

		if raised, hasRaised := h.takeRaised(); hasRaised {
			if raised.Kind() == event.Halt {
				a.haltInbox()
				return
			}
			h.raised = &raised
		}
	}
}

// handleError consults the actor's ExceptionPolicy for any error that is not
// itself one of the recorded errors.RuntimeError taxonomy members (those are
// surfaced as-is, since the behavior deliberately constructed them). It
// reports whether the actor should halt as a result.
func (a *Actor) handleError(err error) bool {
	if err == nil {
		return false
	}

	if taxonomy, isTaxonomy := err.(loomerrors.RuntimeError); isTaxonomy {
		a.rt.Abort(taxonomy)
		return true
	}

	switch a.behavior.ExceptionPolicy() {
	case Ignore:
		logger.WarnS(context.Background(), "actor handler error ignored", err, "actor", a.ID.String())
		return false
	case Halt:
		return true
	default: // Propagate
		a.rt.Assert(false, err.Error())
		return true
	}
}

// nextEvent resolves the next event per spec.md §4.2 step 1: a pending
// raised event takes priority; otherwise it receives from the inbox
// (equivalent to Receive(nil, nil), i.e. "any kind"), blocking
// cooperatively via SchedulingPoint until one arrives.
func (a *Actor) nextEvent(h *Handle) (event.Event, event.Group, bool) {
	if raised, ok := h.takeRaised(); ok {
		return raised, h.currentGroup, true
	}

	ev, group, err := a.rt.Receive(a.ID, a.op, nil, nil)
	if err != nil {
		return nil, 0, false
	}
	return ev, group, true
}

func (a *Actor) haltInbox() {
	a.Status = Halted
	a.Inbox.Halt()
}
