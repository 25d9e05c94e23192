// Package event defines the Event value exchanged between actors (C1 in
// SPEC_FULL.md). It mirrors the teacher's sealed Message interface
// (internal/baselib/actor/interface.go) — an unexported marker method plus a
// BaseEvent embed — but drops the generic response type entirely, since
// events here are fire-and-forget payloads routed through inboxes rather
// than ask/await request-response pairs.
package event

import "fmt"

// Group is a causal identifier copied from a sender to every event it
// produces, used to correlate related work across actors (GLOSSARY: "Event
// group").
type Group uint64

// NoGroup is the zero value, meaning the event was not sent as part of any
// tracked causal chain.
const NoGroup Group = 0

// Halt is the well-known event kind that terminates an actor after its
// current handler runs to completion (spec.md §4.2).
const Halt = "loom.Halt"

// BaseEvent is embedded by concrete event types to satisfy the sealed Event
// interface's unexported marker method, the same pattern the teacher uses
// for BaseMessage.
type BaseEvent struct{}

func (BaseEvent) eventMarker() {}

// Event is a sealed interface: only types embedding BaseEvent (or declared
// in this package) may satisfy it. An event's identity is its Kind plus
// whatever payload fields the concrete type carries; there is no
// general-purpose equality beyond that — two events of the same Kind with
// different payloads are simply different values.
type Event interface {
	// eventMarker seals the interface to this package's descendants.
	eventMarker()

	// Kind returns the event's type name, used for handler-table lookup,
	// deferral-set membership, and receive-filter matching.
	Kind() string
}

// haltEvent is the concrete value carried by the well-known Halt kind.
type haltEvent struct{ BaseEvent }

func (haltEvent) Kind() string { return Halt }

// HaltEvent is the singleton Halt event value; Send(target, event.HaltEvent)
// requests termination of target.
var HaltEvent Event = haltEvent{}

// Envelope pairs an Event with the causal Group it was sent under, the unit
// actually carried through an inbox.
type Envelope struct {
	Event Event
	Group Group
}

func (e Envelope) String() string {
	return fmt.Sprintf("%s(group=%d)", e.Event.Kind(), e.Group)
}
