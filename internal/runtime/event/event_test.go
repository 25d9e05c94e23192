package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type pingEvent struct {
	BaseEvent
	n int
}

func (pingEvent) Kind() string { return "Ping" }

func TestHaltEventKind(t *testing.T) {
	require.Equal(t, Halt, HaltEvent.Kind())
}

func TestNoGroupIsZeroValue(t *testing.T) {
	require.Equal(t, Group(0), NoGroup)
}

func TestEnvelopeStringIncludesKindAndGroup(t *testing.T) {
	env := Envelope{Event: pingEvent{n: 1}, Group: 7}
	require.Equal(t, "Ping(group=7)", env.String())
}

func TestConcreteEventSatisfiesSealedInterface(t *testing.T) {
	var e Event = pingEvent{n: 42}
	require.Equal(t, "Ping", e.Kind())
}
