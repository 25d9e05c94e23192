package liveness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/loom/internal/runtime/actor"
	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runtime/event"
	"github.com/roasbeef/loom/internal/runtime/monitor"
)

func buildGuard(t *testing.T) *monitor.Machine {
	idle := monitor.NewState("Idle").Start().Cold().OnGoto("Request", "Waiting").Build()
	waiting := monitor.NewState("Waiting").Hot().OnGoto("Response", "Idle").Build()

	m, err := monitor.NewMachine(monitor.Config{
		TypeTag: "Guard",
		States:  []*monitor.State{idle, waiting},
	})
	require.NoError(t, err)
	return m
}

func TestTemperatureResetsOnCold(t *testing.T) {
	guard := buildGuard(t)
	monitors := map[string]*monitor.Machine{"Guard": guard}
	actors := map[any]*actor.Actor{}

	c := New(5, false)

	for i := 0; i < 3; i++ {
		err := c.OnStep(monitors, actors)
		require.Nil(t, err)
	}
	require.Equal(t, 0, c.Temperature())
}

func TestTemperatureThresholdExceededEmitsLivenessBug(t *testing.T) {
	guard := buildGuard(t)
	require.NoError(t, guard.ProcessEvent(gotoEvent("Request")))

	monitors := map[string]*monitor.Machine{"Guard": guard}
	actors := map[any]*actor.Actor{}

	c := New(2, false)

	var lastErr loomerrors.RuntimeError
	for i := 0; i < 4; i++ {
		lastErr = c.OnStep(monitors, actors)
		if lastErr != nil {
			break
		}
	}

	require.NotNil(t, lastErr)
	bug, ok := lastErr.(*loomerrors.PotentialLivenessBug)
	require.True(t, ok)
	require.Equal(t, "Guard", bug.Monitor)
	require.Equal(t, "Waiting", bug.State)
}

func TestThresholdDisabledNeverFires(t *testing.T) {
	guard := buildGuard(t)
	require.NoError(t, guard.ProcessEvent(gotoEvent("Request")))

	monitors := map[string]*monitor.Machine{"Guard": guard}
	actors := map[any]*actor.Actor{}

	c := New(0, false)
	for i := 0; i < 50; i++ {
		require.Nil(t, c.OnStep(monitors, actors))
	}
}

type fingerprintEvent struct {
	event.BaseEvent
	kind string
}

func (e fingerprintEvent) Kind() string { return e.kind }

func gotoEvent(kind string) event.Event {
	return fingerprintEvent{kind: kind}
}
