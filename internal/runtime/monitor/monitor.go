// Package monitor implements the synchronous observer state machine
// described in SPEC_FULL.md as C6 (spec.md §4.4). A Monitor is structurally
// identical to an fsm.Machine — the same hierarchical state stack, the same
// Do/Goto/Push/Pop transition shapes — but it holds no inbox and is driven
// synchronously at the call site of Handle.Monitor, never scheduled as its
// own Operation. Monitors may not Send, Create, or Receive; their Handle
// exposes only Assert, Raise, and the transition primitives.
package monitor

import (
	"fmt"

	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runtime/event"
)

// TransitionKind mirrors fsm.TransitionKind; kept as a distinct type since a
// Monitor's Action signature differs from fsm.Action (no actor.Handle).
type TransitionKind int

const (
	Do TransitionKind = iota
	Goto
	Push
)

// transitionPop is the sentinel used only via Handle.Pop, matching
// fsm.transitionPop.
const transitionPop TransitionKind = 100

// Action is monitor handler code for a Do transition.
type Action func(h *Handle, ev event.Event) error

type transition struct {
	kind   TransitionKind
	action Action
	target string
}

// State is one node of a monitor's hierarchical state machine.
type State struct {
	Name string

	entry Action
	exit  Action

	handlers map[string]transition
	ignored  map[string]struct{}

	hot   bool
	cold  bool
	start bool
}

// StateBuilder constructs a State, panicking on duplicate handler
// registration for the same event kind (construction-time error, matching
// fsm.StateBuilder).
type StateBuilder struct {
	s *State
}

// NewState begins building a state named name.
func NewState(name string) *StateBuilder {
	return &StateBuilder{s: &State{
		Name:     name,
		handlers: make(map[string]transition),
		ignored:  make(map[string]struct{}),
	}}
}

func (b *StateBuilder) OnEntry(fn Action) *StateBuilder {
	b.s.entry = fn
	return b
}

func (b *StateBuilder) OnExit(fn Action) *StateBuilder {
	b.s.exit = fn
	return b
}

func (b *StateBuilder) register(kind string, t transition) *StateBuilder {
	if _, exists := b.s.handlers[kind]; exists {
		panic(fmt.Sprintf("monitor: state %q declares a handler for %q twice", b.s.Name, kind))
	}
	b.s.handlers[kind] = t
	return b
}

func (b *StateBuilder) OnDo(kind string, fn Action) *StateBuilder {
	return b.register(kind, transition{kind: Do, action: fn})
}

func (b *StateBuilder) OnGoto(kind, target string) *StateBuilder {
	return b.register(kind, transition{kind: Goto, target: target})
}

func (b *StateBuilder) OnPush(kind, target string) *StateBuilder {
	return b.register(kind, transition{kind: Push, target: target})
}

func (b *StateBuilder) Ignore(kinds ...string) *StateBuilder {
	for _, k := range kinds {
		b.s.ignored[k] = struct{}{}
	}
	return b
}

// Hot tags the state as "a response is owed" (spec.md §4.4).
func (b *StateBuilder) Hot() *StateBuilder {
	b.s.hot = true
	return b
}

// Cold tags the state as "all obligations discharged".
func (b *StateBuilder) Cold() *StateBuilder {
	b.s.cold = true
	return b
}

func (b *StateBuilder) Start() *StateBuilder {
	b.s.start = true
	return b
}

func (b *StateBuilder) Build() *State {
	return b.s
}

// Handle is passed to monitor Action functions. It intentionally has no
// Send/Create/Receive — spec.md §4.4: "Monitors may not send events, create
// actors, or call Receive."
type Handle struct {
	m      *Machine
	raised *event.Event
}

// Assert records a safety violation if cond is false.
func (h *Handle) Assert(cond bool, msg string) {
	if h.m.assertFn != nil {
		h.m.assertFn(cond, msg)
	}
}

// Raise sets a pending self-event, applied immediately after the current
// handler returns (mirrors actor.Handle.Raise, minus the inbox).
func (h *Handle) Raise(ev event.Event) {
	h.raised = &ev
}

// Goto requests an unconditional transition to target.
func (h *Handle) Goto(target string) {
	h.m.pending = &pendingTransition{kind: Goto, target: target}
}

// Push requests pushing target on top of the state stack.
func (h *Handle) Push(target string) {
	h.m.pending = &pendingTransition{kind: Push, target: target}
}

// Pop requests popping the current top state.
func (h *Handle) Pop() {
	h.m.pending = &pendingTransition{kind: transitionPop}
}

type pendingTransition struct {
	kind   TransitionKind
	target string
}

// Machine is a Monitor[T]: a named, typed observer driven synchronously by
// Handle.Monitor calls from actor handlers (spec.md §4.4).
type Machine struct {
	TypeTag string

	states  map[string]*State
	start   string
	stack   []*State
	pending *pendingTransition

	// running guards against re-entrant ProcessEvent calls, resolving
	// Open Question 3: a Monitor handler that itself calls Monitor<T>
	// (including its own type) is a construction/runtime error rather
	// than silently allowed.
	running bool

	assertFn func(cond bool, msg string)
}

// Config bundles the states and wiring passed to NewMachine.
type Config struct {
	TypeTag  string
	States   []*State
	AssertFn func(cond bool, msg string)
}

// NewMachine validates and constructs a monitor Machine. Exactly one state
// must carry Start(); unknown Goto/Push targets are rejected here.
func NewMachine(cfg Config) (*Machine, error) {
	m := &Machine{
		TypeTag:  cfg.TypeTag,
		states:   make(map[string]*State, len(cfg.States)),
		assertFn: cfg.AssertFn,
	}

	var startCount int
	for _, s := range cfg.States {
		if _, dup := m.states[s.Name]; dup {
			return nil, fmt.Errorf("monitor %q: duplicate state name %q", cfg.TypeTag, s.Name)
		}
		m.states[s.Name] = s
		if s.start {
			m.start = s.Name
			startCount++
		}
	}
	if startCount != 1 {
		return nil, fmt.Errorf("monitor %q: exactly one state must be tagged Start (found %d)", cfg.TypeTag, startCount)
	}

	for _, s := range cfg.States {
		for kind, t := range s.handlers {
			if t.kind == Goto || t.kind == Push {
				if _, ok := m.states[t.target]; !ok {
					return nil, fmt.Errorf("monitor %q: state %q's handler for %q targets unknown state %q",
						cfg.TypeTag, s.Name, kind, t.target)
				}
			}
		}
	}

	return m, nil
}

func (m *Machine) top() *State {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

// CurrentState returns the active state's name, or "" before the first
// ProcessEvent has entered the start state.
func (m *Machine) CurrentState() string {
	if s := m.top(); s != nil {
		return s.Name
	}
	return ""
}

// IsHot reports whether any state currently on the stack is tagged Hot
// (spec.md §4.4: "Hot states represent a response is owed").
func (m *Machine) IsHot() bool {
	for _, s := range m.stack {
		if s.hot {
			return true
		}
	}
	return false
}

// HotStates returns the names of every Hot-tagged state on the stack, for
// the liveness checker and trace report.
func (m *Machine) HotStates() []string {
	var hot []string
	for _, s := range m.stack {
		if s.hot {
			hot = append(hot, s.Name)
		}
	}
	return hot
}

// ProcessEvent delivers ev synchronously to the monitor, per spec.md §4.4
// ("Monitor<T>(event) is processed synchronously at the call site; no
// scheduling point is introduced"). It returns a *MonitorReentrant error if called
// while already processing an event (Open Question 3).
func (m *Machine) ProcessEvent(ev event.Event) error {
	if m.running {
		return &loomerrors.MonitorReentrant{Monitor: m.TypeTag}
	}
	m.running = true
	defer func() { m.running = false }()

	h := &Handle{m: m}

	if len(m.stack) == 0 {
		if err := m.enter(h, ev, m.start); err != nil {
			return err
		}
	}

	for {
		if err := m.dispatch(h, ev); err != nil {
			return err
		}

		raised, ok := h.raised, h.raised != nil
		if !ok {
			return nil
		}
		h.raised = nil
		ev = *raised
	}
}

func (m *Machine) dispatch(h *Handle, ev event.Event) error {
	kind := ev.Kind()

	for i := len(m.stack) - 1; i >= 0; i-- {
		s := m.stack[i]

		if _, ignored := s.ignored[kind]; ignored {
			return nil
		}

		t, ok := s.handlers[kind]
		if !ok {
			continue
		}

		return m.apply(h, ev, t)
	}

	return &loomerrors.UnhandledEvent{
		Actor:     "monitor:" + m.TypeTag,
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

func (m *Machine) gotoState(h *Handle, ev event.Event, target string) error {
	for len(m.stack) > 0 {
		if err := m.popState(h, ev); err != nil {
			return err
		}
	}
	return m.enter(h, ev, target)
}

func (m *Machine) pushState(h *Handle, ev event.Event, target string) error {
	return m.enter(h, ev, target)
}

func (m *Machine) popState(h *Handle, ev event.Event) error {
	if len(m.stack) == 0 {
		return nil
	}
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]

	if top.exit != nil {
		if err := top.exit(h, ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) enter(h *Handle, ev event.Event, target string) error {
	s, ok := m.states[target]
	if !ok {
		return nil
	}
	m.stack = append(m.stack, s)

	if s.entry != nil {
		if err := s.entry(h, ev); err != nil {
			return err
		}
	}
	return nil
}
