package fsm

import (
	"fmt"

	"github.com/roasbeef/loom/internal/runtime/actor"
	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runtime/event"
)

// Machine is a hierarchical state machine: an actor.Behavior whose handler
// table is indexed by a stack of States (spec.md §3/§4.3).
type Machine struct {
	name    string
	states  map[string]*State
	start   string
	stack   []*State
	pending *pendingTransition
	policy  actor.ExceptionPolicy
}

// Config bundles the states passed to NewMachine.
type Config struct {
	Name            string
	States          []*State
	ExceptionPolicy actor.ExceptionPolicy
}

// NewMachine validates and constructs a Machine. Exactly one state must
// carry Start(); unknown Goto/Push targets are also rejected here rather
// than surfacing as a runtime panic mid-test.
func NewMachine(cfg Config) (*Machine, error) {
	m := &Machine{
		name:   cfg.Name,
		states: make(map[string]*State, len(cfg.States)),
		policy: cfg.ExceptionPolicy,
	}

	var startCount int
	for _, s := range cfg.States {
		if _, dup := m.states[s.Name]; dup {
			return nil, fmt.Errorf("fsm %q: duplicate state name %q", cfg.Name, s.Name)
		}
		m.states[s.Name] = s
		if s.start {
			m.start = s.Name
			startCount++
		}
	}
	if startCount != 1 {
		return nil, fmt.Errorf("fsm %q: exactly one state must be tagged Start (found %d)", cfg.Name, startCount)
	}

	for _, s := range cfg.States {
		for kind, t := range s.handlers {
			if t.kind == Goto || t.kind == Push {
				if _, ok := m.states[t.target]; !ok {
					return nil, fmt.Errorf("fsm %q: state %q's handler for %q targets unknown state %q",
						cfg.Name, s.Name, kind, t.target)
				}
			}
		}
	}

	return m, nil
}

// ExceptionPolicy implements actor.Behavior.
func (m *Machine) ExceptionPolicy() actor.ExceptionPolicy { return m.policy }

// top returns the active state (the top of the stack), or nil when the
// stack is empty.
func (m *Machine) top() *State {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

// CurrentState returns the name of the active state, for trace/report
// rendering and the liveness fingerprinter.
func (m *Machine) CurrentState() string {
	if s := m.top(); s != nil {
		return s.Name
	}
	return ""
}

// HotStates returns the names of every Hot-tagged state currently on the
// stack (C10's liveness checker consults this through the monitor
// package's equivalent method).
func (m *Machine) HotStates() []string {
	var hot []string
	for _, s := range m.stack {
		if s.hot {
			hot = append(hot, s.Name)
		}
	}
	return hot
}

// AllCold reports whether every state on the stack is Cold (or tagged
// neither Hot nor Cold) — i.e. no obligation is outstanding.
func (m *Machine) AllCold() bool {
	for _, s := range m.stack {
		if s.hot {
			return false
		}
	}
	return true
}

// HandleEvent implements actor.Behavior. It resolves ev's handler by
// walking the state stack from top to bottom (inherited handlers), applies
// the resulting Do/Goto/Push/Pop transition, and reports UnhandledEvent if
// no state on the stack handles, defers, or ignores the kind.
func (m *Machine) HandleEvent(h *actor.Handle, ev event.Event) error {
	mh := &Handle{Handle: h, m: m}

	if len(m.stack) == 0 {
		if err := m.enter(mh, ev, m.start); err != nil {
			return err
		}
	}

	kind := ev.Kind()

	for i := len(m.stack) - 1; i >= 0; i-- {
		s := m.stack[i]

		if _, ignored := s.ignored[kind]; ignored {
			return nil
		}
		if _, deferred := s.deferred[kind]; deferred {
			// Deferred events never reach HandleEvent in the first
			// place (the inbox filters them before dequeue); a
			// deferred kind appearing here means it was deferred
			// by an *enclosing* state that is not the state that
			// actually owns the live deferral mask. Treat as
			// unhandled-but-silent rather than erroring, since the
			// queue is the authority on deferral.
			return nil
		}

		t, ok := s.handlers[kind]
		if !ok {
			continue
		}

		if err := m.apply(mh, ev, t); err != nil {
			return err
		}
		return nil
	}

	return &loomerrors.UnhandledEvent{
		Actor:     h.Self.String(),
		State:     m.CurrentState(),
		EventKind: kind,
	}
}

func (m *Machine) apply(h *Handle, ev event.Event, t transition) error {
	switch t.kind {
	case Do:
		if t.action != nil {
			if err := t.action(h, ev); err != nil {
				return err
			}
		}
		return m.applyPending(h, ev)
	case Goto:
		if err := m.gotoState(h, ev, t.target); err != nil {
			return err
		}
		return m.applyPending(h, ev)
	case Push:
		if err := m.pushState(h, ev, t.target); err != nil {
			return err
		}
		return m.applyPending(h, ev)
	}
	return nil
}

// applyPending runs any Goto/Push/Pop requested imperatively by the action
// itself (via Handle.Goto/Push/Pop), possibly chaining further pending
// transitions the new state's entry action requests. It stops and surfaces
// the error as soon as any entry/exit action along the chain fails, rather
// than running the remaining chained transitions against a half-settled
// stack.
func (m *Machine) applyPending(h *Handle, ev event.Event) error {
	for m.pending != nil {
		p := m.pending
		m.pending = nil

		var err error
		switch p.kind {
		case Goto:
			err = m.gotoState(h, ev, p.target)
		case Push:
			err = m.pushState(h, ev, p.target)
		case transitionPop:
			err = m.popState(h, ev)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// gotoState pops every state on the stack, running each exit action
// top-down, then pushes and enters target (spec.md §4.3). It stops at the
// first exit or entry action that errors, leaving the stack as it stood
// after the last successful pop.
func (m *Machine) gotoState(h *Handle, ev event.Event, target string) error {
	for len(m.stack) > 0 {
		if err := m.popState(h, ev); err != nil {
			return err
		}
	}
	return m.enter(h, ev, target)
}

// pushState pushes and enters target without running any exit actions.
func (m *Machine) pushState(h *Handle, ev event.Event, target string) error {
	return m.enter(h, ev, target)
}

// popState pops the top state, running its exit action, without running
// the entry action of the state now exposed underneath it.
func (m *Machine) popState(h *Handle, ev event.Event) error {
	if len(m.stack) == 0 {
		return nil
	}
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]

	h.RecallDeferred(keysOf(top.deferred))

	if top.exit != nil {
		// A Raise during OnExit is buffered until after the exit
		// action completes (Open Question 2, resolved in
		// SPEC_FULL.md §4): the Handle's raised field is shared with
		// the actor-level Handle, so any Raise call here simply sets
		// it as usual and the actor loop consumes it on the next
		// HandleEvent call, after this whole transition (and any
		// further chained Goto/Push/Pop) has settled. An error from
		// the exit action itself is handler code failing (spec.md
		// §4.3) and is returned rather than discarded.
		if err := top.exit(h, ev); err != nil {
			return err
		}
	}
	return nil
}

// enter pushes target onto the stack and runs its entry action, unioning
// its deferred set into the inbox's live deferral mask (spec.md §4.3:
// "Deferral: per-state deferred sets union with the current inbox
// deferral mask on entry and are restored on exit").
func (m *Machine) enter(h *Handle, ev event.Event, target string) error {
	s, ok := m.states[target]
	if !ok {
		return nil
	}
	m.stack = append(m.stack, s)

	h.Defer(keysOf(s.deferred))

	if s.entry != nil {
		if err := s.entry(h, ev); err != nil {
			return err
		}
	}
	return nil
}

func keysOf(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
