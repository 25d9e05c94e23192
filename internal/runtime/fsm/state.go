// Package fsm implements the hierarchical state-machine interpreter
// described in SPEC_FULL.md as C5 — by share of the core, the single
// largest component. It is built entirely on top of internal/runtime/actor:
// a Machine is just an actor.Behavior, so everything C4 already provides
// (the handler loop, inbox, Send/Create/Receive/Random/Assert/Monitor) is
// reused unchanged; fsm only adds the state-stack discipline and handler
// table lookup on top.
//
// This replaces the teacher's reflection-based actor dispatch with the
// explicit table construction the Design Notes call for ("replace with an
// explicit table kind -> handler_function constructed at state-machine
// build time").
package fsm

import (
	"fmt"

	"github.com/roasbeef/loom/internal/runtime/actor"
	"github.com/roasbeef/loom/internal/runtime/event"
)

// TransitionKind is the three shapes a declared event handler can take.
type TransitionKind int

const (
	// Do runs an arbitrary action function; the state does not change
	// (though the action may itself call Goto/Push/Pop explicitly).
	Do TransitionKind = iota
	// Goto pops every state on the stack (running their exits top-down),
	// then pushes and enters Target.
	Goto
	// Push pushes and enters Target without running any exit actions.
	Push
)

// Action is user handler code for a Do transition.
type Action func(h *Handle, ev event.Event) error

// transition is one declared kind -> behavior entry for a State.
type transition struct {
	kind   TransitionKind
	action Action
	target string
}

// State is one node of a hierarchical state machine (spec.md §3's
// StateMachine refinement of Actor).
type State struct {
	Name string

	entry Action
	exit  Action

	handlers map[string]transition
	deferred map[string]struct{}
	ignored  map[string]struct{}

	hot   bool
	cold  bool
	start bool
}

// StateBuilder constructs a State with construction-time-checked handler
// registration: declaring the same event kind twice at one state panics
// immediately (spec.md §4.3: "declaring the same kind twice at one state is
// a construction-time error"), rather than silently overwriting it the way
// a bare map literal would.
type StateBuilder struct {
	s *State
}

// NewState begins building a state named name.
func NewState(name string) *StateBuilder {
	return &StateBuilder{s: &State{
		Name:     name,
		handlers: make(map[string]transition),
		deferred: make(map[string]struct{}),
		ignored:  make(map[string]struct{}),
	}}
}

// OnEntry sets the state's entry action.
func (b *StateBuilder) OnEntry(fn Action) *StateBuilder {
	b.s.entry = fn
	return b
}

// OnExit sets the state's exit action.
func (b *StateBuilder) OnExit(fn Action) *StateBuilder {
	b.s.exit = fn
	return b
}

func (b *StateBuilder) register(kind string, t transition) *StateBuilder {
	if _, exists := b.s.handlers[kind]; exists {
		panic(fmt.Sprintf("fsm: state %q declares a handler for %q twice", b.s.Name, kind))
	}
	b.s.handlers[kind] = t
	return b
}

// OnDo declares a Do(action) handler for kind.
func (b *StateBuilder) OnDo(kind string, fn Action) *StateBuilder {
	return b.register(kind, transition{kind: Do, action: fn})
}

// OnGoto declares a Goto(target) handler for kind.
func (b *StateBuilder) OnGoto(kind, target string) *StateBuilder {
	return b.register(kind, transition{kind: Goto, target: target})
}

// OnPush declares a Push(target) handler for kind.
func (b *StateBuilder) OnPush(kind, target string) *StateBuilder {
	return b.register(kind, transition{kind: Push, target: target})
}

// Defer marks kinds as deferred while this state is active.
func (b *StateBuilder) Defer(kinds ...string) *StateBuilder {
	for _, k := range kinds {
		b.s.deferred[k] = struct{}{}
	}
	return b
}

// Ignore marks kinds as ignored (consumed with no action) while this state
// is active.
func (b *StateBuilder) Ignore(kinds ...string) *StateBuilder {
	for _, k := range kinds {
		b.s.ignored[k] = struct{}{}
	}
	return b
}

// Hot tags the state as a monitor liveness "obligation outstanding" state.
func (b *StateBuilder) Hot() *StateBuilder {
	b.s.hot = true
	return b
}

// Cold tags the state as a monitor liveness "all obligations discharged"
// state.
func (b *StateBuilder) Cold() *StateBuilder {
	b.s.cold = true
	return b
}

// Start marks this state as the machine's initial state. Exactly one state
// per machine must carry this tag.
func (b *StateBuilder) Start() *StateBuilder {
	b.s.start = true
	return b
}

// Build finalizes the State.
func (b *StateBuilder) Build() *State {
	return b.s
}

// Handle is the actor.Handle plus the Goto/Push/Pop transition primitives a
// Do action may invoke to change state dynamically mid-action, layered on
// top of C4's primitives per spec.md §4.3.
type Handle struct {
	*actor.Handle

	m *Machine
}

// Goto requests an unconditional transition to target, applied immediately
// after the current action returns.
func (h *Handle) Goto(target string) {
	h.m.pending = &pendingTransition{kind: Goto, target: target}
}

// Push requests pushing target on top of the state stack, applied
// immediately after the current action returns.
func (h *Handle) Push(target string) {
	h.m.pending = &pendingTransition{kind: Push, target: target}
}

// Pop requests popping the current top state, applied immediately after the
// current action returns.
func (h *Handle) Pop() {
	h.m.pending = &pendingTransition{kind: transitionPop}
}

// transitionPop is an internal TransitionKind value only ever used for a
// pendingTransition requested via Handle.Pop — it has no corresponding
// per-state declarative form (spec.md §4.3 lists Pop as an interpreter
// primitive, not a declarable handler shape).
const transitionPop TransitionKind = 100

type pendingTransition struct {
	kind   TransitionKind
	target string
}
