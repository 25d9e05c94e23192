// Package actor implements the actor base (C4 of SPEC_FULL.md): a
// mailbox-driven reactive object with create/send/halt primitives. It plays
// the role the teacher's generic Actor[M, R] plays in
// internal/baselib/actor/actor.go, but the behavior it drives is chosen by
// the deterministic scheduler rather than by a real goroutine racing a Go
// channel — user code never observes a wall clock or true concurrency here.
//
// Per SPEC_FULL.md's Design Notes on cyclic references, Actor never holds a
// pointer back to its owning execution context. It only knows a narrow
// Runtime interface, satisfied by whatever concrete context type constructed
// it (internal/runtime/rtcontext.ExecutionContext in practice); this keeps
// the actor<->context reference acyclic at the type level even though the
// two inevitably call into each other at runtime.
package actor

import (
	"github.com/roasbeef/loom/internal/runtime/actorid"
	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runtime/event"
	"github.com/roasbeef/loom/internal/runtime/scheduler"
)

// ExceptionPolicy tells the handler loop what to do when a Behavior's
// HandleEvent returns a non-nil, non-taxonomy error (i.e. a panic-turned-
// error or a user mistake, as opposed to a deliberate errors.RuntimeError
// the behavior wants surfaced as-is). This realizes the "exceptions as
// control flow" redesign note: a single enum consulted at one catch
// boundary in the handler loop, rather than re-thrown across scheduling
// points.
type ExceptionPolicy int

const (
	// Propagate surfaces the error to the context's error list and halts
	// the actor — the default, matching "unless told otherwise, a crash
	// is a bug".
	Propagate ExceptionPolicy = iota
	// Ignore logs the error and continues the handler loop as if nothing
	// happened.
	Ignore
	// Halt halts the actor cleanly without recording the error as a
	// safety violation.
	Halt
)

func (p ExceptionPolicy) String() string {
	switch p {
	case Ignore:
		return "Ignore"
	case Halt:
		return "Halt"
	default:
		return "Propagate"
	}
}

// Behavior is supplied by user code (directly, or via the state-machine
// interpreter in internal/runtime/fsm) to define how an actor reacts to
// events. Unlike the teacher's ActorBehavior[M, R], there is no response
// type: actors here communicate exclusively by sending further events, never
// by returning a value to a caller.
type Behavior interface {
	// HandleEvent processes one event delivered to the actor. Returning
	// a *errors.RuntimeError-satisfying error records it verbatim as a
	// safety violation regardless of ExceptionPolicy; any other error is
	// run through the actor's ExceptionPolicy.
	HandleEvent(h *Handle, ev event.Event) error

	// ExceptionPolicy reports how unexpected (non-taxonomy) errors from
	// HandleEvent should be handled.
	ExceptionPolicy() ExceptionPolicy
}

// SendOptions configures a Send call.
type SendOptions struct {
	// AssertAtMost, if non-zero, fails the send with QueueAssertViolated
	// when the target's inbox already holds this many or more instances
	// of the event's kind (spec.md §4.2's "options.assert == k").
	AssertAtMost int
}

// ActorSpec describes a new actor to Create.
type ActorSpec struct {
	TypeTag string
	// Name, if set, requests a stable name; Create fails with
	// NameAlreadyBound if it is already taken. Unset means a numeric id
	// is minted instead.
	Name string
	HasName bool
	// Setup, if set, is enqueued as the new actor's first inbox item.
	Setup event.Event
	// NewBehavior constructs the Behavior instance driving the new
	// actor; called once, synchronously, before the actor's first
	// scheduling point.
	NewBehavior func() Behavior
}

// Runtime is the narrow slice of ExecutionContext capabilities a Handle
// needs. Defining it here (at the consumer) rather than in rtcontext is
// what breaks the actor<->context import cycle.
type Runtime interface {
	Send(from actorid.ID, target actorid.ID, ev event.Event, opts SendOptions) error
	Create(creator actorid.ID, spec ActorSpec) (actorid.ID, error)
	Receive(self actorid.ID, op *scheduler.Operation, kinds []string, predicate func(event.Event) bool) (event.Event, event.Group, error)
	Random(op *scheduler.Operation, domain int) int
	RandomBool(op *scheduler.Operation) bool
	Assert(cond bool, msg string)
	// Abort records err verbatim as the iteration's failure and aborts it,
	// preserving err's own taxonomy Kind rather than flattening it into an
	// AssertionViolation.
	Abort(err loomerrors.RuntimeError)
	Monitor(monitorType string, ev event.Event) error
	SchedulingPoint(op *scheduler.Operation, status scheduler.Status, reason scheduler.BlockReason) bool
	SetDeferred(self actorid.ID, kinds []string)
	RecallDeferred(self actorid.ID, kinds []string)
}

// Handle is the bundle of primitives passed to Behavior.HandleEvent, bound
// to one actor's identity and in-flight Operation. It is the Go analogue of
// the "ctx" parameter user handlers receive in every actor-model source this
// runtime is modeled on.
type Handle struct {
	Self actorid.ID

	rt  Runtime
	op  *scheduler.Operation
	raised *event.Event
	currentGroup event.Group
}

// NewHandle is exported for the fsm and monitor packages, which construct a
// Handle once per actor and reuse it across every HandleEvent call.
func NewHandle(self actorid.ID, rt Runtime, op *scheduler.Operation) *Handle {
	return &Handle{Self: self, rt: rt, op: op}
}

// Send enqueues ev on target's inbox under the actor's current event group.
func (h *Handle) Send(target actorid.ID, ev event.Event, opts SendOptions) error {
	return h.rt.Send(h.Self, target, ev, opts)
}

// Create constructs a new actor and returns its identity.
func (h *Handle) Create(spec ActorSpec) (actorid.ID, error) {
	return h.rt.Create(h.Self, spec)
}

// Raise sets the pending raised event for the current handler; it is
// consumed before the next inbox dequeue (spec.md §4.2 step 4), taking
// priority even over a Halt sitting in the inbox.
func (h *Handle) Raise(ev event.Event) {
	h.raised = &ev
}

// Receive suspends the current handler until a matching event is enqueued.
func (h *Handle) Receive(kinds []string, predicate func(event.Event) bool) (event.Event, error) {
	ev, group, err := h.rt.Receive(h.Self, h.op, kinds, predicate)
	if err != nil {
		return nil, err
	}
	h.currentGroup = group
	return ev, nil
}

// Random returns a controlled nondeterministic value in [0, domain).
func (h *Handle) Random(domain int) int {
	return h.rt.Random(h.op, domain)
}

// RandomBool returns a controlled nondeterministic boolean.
func (h *Handle) RandomBool() bool {
	return h.rt.RandomBool(h.op)
}

// Assert records a safety violation if cond is false.
func (h *Handle) Assert(cond bool, msg string) {
	h.rt.Assert(cond, msg)
}

// Monitor delivers ev synchronously to the registered monitor of the given
// type; no scheduling point is introduced (spec.md §4.4).
func (h *Handle) Monitor(monitorType string, ev event.Event) error {
	return h.rt.Monitor(monitorType, ev)
}

// HaltSelf requests termination of the current actor after the handler
// returns, by raising the well-known Halt event.
func (h *Handle) HaltSelf() {
	h.Raise(event.HaltEvent)
}

// CurrentGroup returns the causal event-group of the event currently being
// handled.
func (h *Handle) CurrentGroup() event.Group {
	return h.currentGroup
}

// Defer adds kinds to the actor's inbox deferred set.
func (h *Handle) Defer(kinds []string) {
	h.rt.SetDeferred(h.Self, kinds)
}

// RecallDeferred removes kinds from the actor's inbox deferred set.
func (h *Handle) RecallDeferred(kinds []string) {
	h.rt.RecallDeferred(h.Self, kinds)
}

// takeRaised returns and clears the pending raised event, if any.
func (h *Handle) takeRaised() (event.Event, bool) {
	if h.raised == nil {
		return nil, false
	}
	ev := *h.raised
	h.raised = nil
	return ev, true
}
