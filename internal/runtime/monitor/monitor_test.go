package monitor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/loom/internal/runtime/event"
)

type testEvent struct {
	event.BaseEvent
	kind string
}

func (e testEvent) Kind() string { return e.kind }

func ev(kind string) event.Event { return testEvent{kind: kind} }

func TestMonitorGoesHotThenCold(t *testing.T) {
	var asserted []string
	assertFn := func(cond bool, msg string) {
		if !cond {
			asserted = append(asserted, msg)
		}
	}

	idle := NewState("Idle").
		Start().
		Cold().
		OnGoto("Request", "Waiting").
		Build()

	waiting := NewState("Waiting").
		Hot().
		OnGoto("Response", "Idle").
		Build()

	m, err := NewMachine(Config{
		TypeTag:  "LivenessMonitor",
		States:   []*State{idle, waiting},
		AssertFn: assertFn,
	})
	require.NoError(t, err)

	require.NoError(t, m.ProcessEvent(ev("Request")))
	require.True(t, m.IsHot())
	require.Equal(t, []string{"Waiting"}, m.HotStates())

	require.NoError(t, m.ProcessEvent(ev("Response")))
	require.False(t, m.IsHot())
	require.Equal(t, "Idle", m.CurrentState())
	require.Empty(t, asserted)
}

func TestMonitorReentrancyIsAnError(t *testing.T) {
	idle := NewState("Idle").
		Start().
		Build()

	m, err := NewMachine(Config{TypeTag: "Reentrant", States: []*State{idle}})
	require.NoError(t, err)

	idle.handlers["Trigger"] = transition{
		kind: Do,
		action: func(h *Handle, ev event.Event) error {
			return m.ProcessEvent(ev)
		},
	}

	err = m.ProcessEvent(ev("Trigger"))
	require.Error(t, err)
}

func TestUnhandledEventInMonitor(t *testing.T) {
	idle := NewState("Idle").Start().Build()

	m, err := NewMachine(Config{TypeTag: "Strict", States: []*State{idle}})
	require.NoError(t, err)

	err = m.ProcessEvent(ev("Unexpected"))
	require.Error(t, err)
}

func TestMonitorOnEntryErrorSurfacesThroughProcessEvent(t *testing.T) {
	entryErr := errors.New("entry boom")

	idle := NewState("Idle").
		Start().
		OnGoto("Request", "Waiting").
		Build()

	waiting := NewState("Waiting").
		OnEntry(func(h *Handle, ev event.Event) error { return entryErr }).
		Build()

	m, err := NewMachine(Config{TypeTag: "Entryer", States: []*State{idle, waiting}})
	require.NoError(t, err)

	err = m.ProcessEvent(ev("Request"))
	require.Same(t, entryErr, err)
}

func TestMonitorAssert(t *testing.T) {
	var asserted []string
	assertFn := func(cond bool, msg string) {
		if !cond {
			asserted = append(asserted, msg)
		}
	}

	idle := NewState("Idle").
		Start().
		OnDo("Check", func(h *Handle, ev event.Event) error {
			h.Assert(false, "invariant violated")
			return nil
		}).
		Build()

	m, err := NewMachine(Config{TypeTag: "Asserter", States: []*State{idle}, AssertFn: assertFn})
	require.NoError(t, err)

	require.NoError(t, m.ProcessEvent(ev("Check")))
	require.Equal(t, []string{"invariant violated"}, asserted)
}
