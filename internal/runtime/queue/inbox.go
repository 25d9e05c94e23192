// Package queue implements the per-actor event inbox described in
// SPEC_FULL.md as C3: an ordered FIFO of enqueued events plus a set of
// deferred event kinds and an optional one-shot receive filter. It has no
// equivalent in the teacher repo's channel-based Mailbox
// (internal/baselib/actor/channel_mailbox.go) — that type blocks a real
// goroutine on a Go channel, which is exactly the "real parallelism" this
// runtime forbids. Inbox instead is a plain, single-threaded data structure:
// every method call happens while the context lock is held by the one
// Running operation (G1), so there is nothing here to synchronize.
package queue

import (
	"sort"

	"github.com/roasbeef/loom/internal/runtime/event"
)

// EnqueueResult reports what happened to an enqueued event.
type EnqueueResult int

const (
	// Delivered means the event was accepted, either appended to the
	// inbox or handed directly to a pending receive filter.
	Delivered EnqueueResult = iota
	// Dropped is reserved for a future bounded-mailbox policy; nothing
	// in the current runtime produces it, but it is kept in the enum to
	// match spec.md §4.1's three-value result exactly.
	Dropped
	// Halted means the target inbox belongs to an already-Halted actor;
	// the event is silently discarded.
	Halted
)

// DequeueOutcome tags what a dequeue/receive attempt produced when it did
// not yield an event.
type DequeueOutcome int

const (
	// Got means Envelope is populated with the dequeued event.
	Got DequeueOutcome = iota
	// Defer means every present, matching-filter-eligible event is
	// currently deferred; the caller should block until a fresh enqueue
	// wakes it.
	Defer
	// Empty means the inbox holds no eligible event at all.
	Empty
)

// filter is a one-shot receive filter: kinds is nil/empty to mean "any
// kind"; predicate is optional.
type filter struct {
	kinds     map[string]struct{}
	predicate func(event.Event) bool
}

func (f *filter) matches(ev event.Event) bool {
	if f == nil {
		return true
	}
	if len(f.kinds) > 0 {
		if _, ok := f.kinds[ev.Kind()]; !ok {
			return false
		}
	}
	if f.predicate != nil {
		return f.predicate(ev)
	}
	return true
}

// Inbox is one actor's mailbox. The zero value is not usable; use New.
type Inbox struct {
	halted bool
	items  []event.Envelope
	// deferred counts, per kind, how many stacked fsm states currently
	// defer it. A kind is actually deferred while its count is positive;
	// keeping a count rather than a boolean lets two stacked states defer
	// the same kind without the inner state's exit (RecallDeferred)
	// clearing it out from under the still-active enclosing state.
	deferred map[string]int

	activeFilter *filter
	// pendingMatch holds an event that bypassed the general queue
	// because it matched an active receive filter at enqueue time (I2);
	// it is always returned ahead of items on the next dequeue.
	pendingMatch *event.Envelope
}

// New returns an empty Inbox.
func New() *Inbox {
	return &Inbox{deferred: make(map[string]int)}
}

// Enqueue appends ev to the tail of the inbox under the given causal group,
// unless the inbox is Halted (silently dropped) or an active receive filter
// matches it (delivered directly to the waiter instead of sitting in the
// queue). The second return value reports the latter case so the caller
// (the actor/context layer) knows to transition a Blocked(BlockedOnReceive)
// operation back to Enabled.
func (ib *Inbox) Enqueue(ev event.Event, group event.Group) (EnqueueResult, bool) {
	if ib.halted {
		return Halted, false
	}

	if ib.activeFilter != nil && ib.activeFilter.matches(ev) {
		env := event.Envelope{Event: ev, Group: group}
		ib.pendingMatch = &env
		ib.activeFilter = nil
		return Delivered, true
	}

	ib.items = append(ib.items, event.Envelope{Event: ev, Group: group})
	return Delivered, false
}

// Dequeue returns the next eligible event for the ordinary handler loop:
// equivalent to Receive(nil, nil) but without installing a filter when no
// event is currently eligible (the plain loop re-polls on its next
// scheduling visit instead of waiting on a specific kind).
func (ib *Inbox) Dequeue() (event.Envelope, DequeueOutcome) {
	return ib.scan(nil)
}

// Receive behaves like Dequeue but narrows eligibility to kinds (nil/empty
// meaning any) and predicate (optional). If no eligible event is currently
// queued, it installs a one-shot filter so a subsequent matching Enqueue
// delivers directly, then reports Empty so the caller blocks
// (BlockedOnReceive) until woken.
func (ib *Inbox) Receive(kinds []string, predicate func(event.Event) bool) (event.Envelope, DequeueOutcome) {
	f := &filter{predicate: predicate}
	if len(kinds) > 0 {
		f.kinds = make(map[string]struct{}, len(kinds))
		for _, k := range kinds {
			f.kinds[k] = struct{}{}
		}
	}

	env, outcome := ib.scan(f)
	if outcome == Got {
		return env, Got
	}

	ib.activeFilter = f
	return event.Envelope{}, Empty
}

// TakePending returns and clears a direct-delivered filter match left by
// Enqueue, if any. The actor loop calls this immediately after being woken
// from BlockedOnReceive.
func (ib *Inbox) TakePending() (event.Envelope, bool) {
	if ib.pendingMatch == nil {
		return event.Envelope{}, false
	}
	env := *ib.pendingMatch
	ib.pendingMatch = nil
	return env, true
}

// scan walks items from the head, respecting the deferred set and f
// (nil meaning "any kind, no predicate"), removing and returning the first
// eligible event.
func (ib *Inbox) scan(f *filter) (event.Envelope, DequeueOutcome) {
	if ib.pendingMatch != nil {
		env := *ib.pendingMatch
		ib.pendingMatch = nil
		return env, Got
	}

	if len(ib.items) == 0 {
		return event.Envelope{}, Empty
	}

	sawEligibleButDeferred := false
	for i, env := range ib.items {
		if ib.deferred[env.Event.Kind()] > 0 {
			sawEligibleButDeferred = true
			continue
		}
		if !f.matches(env.Event) {
			continue
		}
		ib.items = append(ib.items[:i:i], ib.items[i+1:]...)
		return env, Got
	}

	if sawEligibleButDeferred {
		return event.Envelope{}, Defer
	}
	return event.Envelope{}, Empty
}

// SetDeferred increments the defer count of each kind. Called once per
// stacked state that defers it (fsm.Machine.enter), so a kind stays
// deferred as long as any state on the stack still defers it.
func (ib *Inbox) SetDeferred(kinds ...string) {
	for _, k := range kinds {
		ib.deferred[k]++
	}
}

// RecallDeferred decrements the defer count of each kind, only clearing a
// kind once its count reaches zero. Because scan always walks items from
// the head in their original order, a kind that does become fully recalled
// finds its events eligible again in their original relative position
// (P4) — recalling never needs to reorder anything.
func (ib *Inbox) RecallDeferred(kinds ...string) {
	for _, k := range kinds {
		if ib.deferred[k] <= 1 {
			delete(ib.deferred, k)
			continue
		}
		ib.deferred[k]--
	}
}

// IsDeferred reports whether kind is currently deferred by at least one
// stacked state.
func (ib *Inbox) IsDeferred(kind string) bool {
	return ib.deferred[kind] > 0
}

// CountKind returns how many items of the given kind currently sit in the
// general queue (not counting a bypassed pendingMatch), used to enforce
// Send's QueueAssertViolated(k) option.
func (ib *Inbox) CountKind(kind string) int {
	n := 0
	for _, env := range ib.items {
		if env.Event.Kind() == kind {
			n++
		}
	}
	return n
}

// Len reports the number of events currently queued (excluding a bypassed
// pendingMatch), used by the liveness fingerprinter.
func (ib *Inbox) Len() int {
	return len(ib.items)
}

// DeferredKinds returns the currently deferred kinds in sorted order, used
// by the liveness fingerprinter to build a stable per-actor hash.
func (ib *Inbox) DeferredKinds() []string {
	if len(ib.deferred) == 0 {
		return nil
	}
	kinds := make([]string, 0, len(ib.deferred))
	for k := range ib.deferred {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Halt marks the inbox Halted: all further Enqueue calls are silently
// dropped and Dequeue/Receive stop producing new deliveries (I3).
func (ib *Inbox) Halt() {
	ib.halted = true
	ib.items = nil
	ib.activeFilter = nil
	ib.pendingMatch = nil
}

// IsHalted reports whether Halt has been called.
func (ib *Inbox) IsHalted() bool {
	return ib.halted
}
