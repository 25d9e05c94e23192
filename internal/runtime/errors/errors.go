// Package errors defines the typed error taxonomy surfaced by the runtime to
// the test harness, per SPEC_FULL.md §1.2 (Error handling). Every
// failure a running iteration can produce is one of these concrete types,
// recorded on the execution context rather than returned up a call stack —
// user handlers run inside a cooperative loop that has nowhere to propagate
// a Go error to once a scheduling point has already yielded control.
package errors

import "fmt"

// Kind identifies the taxonomy of a recorded failure, independent of its
// formatted message. Harnesses and the run-history ledger key off this
// rather than string-matching Error().
type Kind string

const (
	KindAssertionViolation      Kind = "AssertionViolation"
	KindUnhandledEvent          Kind = "UnhandledEvent"
	KindUncontrolledTask        Kind = "UncontrolledTaskDetected"
	KindReceiveOnHalted         Kind = "ReceiveOnHaltedActor"
	KindNameAlreadyBound        Kind = "NameAlreadyBound"
	KindQueueAssertViolated     Kind = "QueueAssertViolated"
	KindPotentialLivenessBug    Kind = "PotentialLivenessBug"
	KindInfiniteExecution       Kind = "InfiniteExecutionViolatesLiveness"
	KindReplayDiverged          Kind = "ReplayDiverged"
	KindStepBudgetExceeded      Kind = "StepBudgetExceeded"
	KindRewrittenArtifactMismatch Kind = "RewrittenArtifactMismatch"
	KindMonitorReentrant        Kind = "MonitorReentrant"
)

// RuntimeError is satisfied by every concrete error type below, letting
// callers switch on Kind() without a type switch over twelve cases.
type RuntimeError interface {
	error
	Kind() Kind
	// Fatal reports whether this error should terminate the current
	// iteration (true for everything except StepBudgetExceeded, which is
	// informational per spec.md §7).
	Fatal() bool
}

// AssertionViolation records a user-level Assert(cond, msg) failure.
type AssertionViolation struct {
	Msg string
}

func (e *AssertionViolation) Error() string { return fmt.Sprintf("assertion violation: %s", e.Msg) }
func (*AssertionViolation) Kind() Kind       { return KindAssertionViolation }
func (*AssertionViolation) Fatal() bool      { return true }

// UnhandledEvent records an event that no state on the stack handles,
// defers, or ignores.
type UnhandledEvent struct {
	Actor string
	State string
	EventKind string
}

func (e *UnhandledEvent) Error() string {
	return fmt.Sprintf("unhandled event %q in state %q of actor %q", e.EventKind, e.State, e.Actor)
}
func (*UnhandledEvent) Kind() Kind { return KindUnhandledEvent }
func (*UnhandledEvent) Fatal() bool { return true }

// UncontrolledTaskDetected records a foreign awaitable that escaped the
// controlled-task shim's rewriting boundary.
type UncontrolledTaskDetected struct {
	Method string
}

func (e *UncontrolledTaskDetected) Error() string {
	return fmt.Sprintf("uncontrolled task detected at %s", e.Method)
}
func (*UncontrolledTaskDetected) Kind() Kind { return KindUncontrolledTask }
func (*UncontrolledTaskDetected) Fatal() bool { return true }

// ReceiveOnHaltedActor records a Receive call issued by an actor that has
// already Halted.
type ReceiveOnHaltedActor struct {
	Actor string
}

func (e *ReceiveOnHaltedActor) Error() string {
	return fmt.Sprintf("receive on halted actor %q", e.Actor)
}
func (*ReceiveOnHaltedActor) Kind() Kind { return KindReceiveOnHalted }
func (*ReceiveOnHaltedActor) Fatal() bool { return true }

// NameAlreadyBound records a Create call with a stable_name already in use.
type NameAlreadyBound struct {
	Name string
}

func (e *NameAlreadyBound) Error() string { return fmt.Sprintf("name already bound: %q", e.Name) }
func (*NameAlreadyBound) Kind() Kind       { return KindNameAlreadyBound }
func (*NameAlreadyBound) Fatal() bool      { return true }

// QueueAssertViolated records a Send with options.assert == k where the
// target's inbox already held k or more instances of that event kind.
type QueueAssertViolated struct {
	EventKind string
	Limit     int
}

func (e *QueueAssertViolated) Error() string {
	return fmt.Sprintf("more than %d instance(s) of %s in queue", e.Limit, e.EventKind)
}
func (*QueueAssertViolated) Kind() Kind { return KindQueueAssertViolated }
func (*QueueAssertViolated) Fatal() bool { return true }

// PotentialLivenessBug records a monitor whose temperature crossed the
// configured threshold while stuck in a hot state.
type PotentialLivenessBug struct {
	Monitor string
	State   string
}

func (e *PotentialLivenessBug) Error() string {
	return fmt.Sprintf("potential liveness bug: monitor %q stuck hot in state %q", e.Monitor, e.State)
}
func (*PotentialLivenessBug) Kind() Kind { return KindPotentialLivenessBug }
func (*PotentialLivenessBug) Fatal() bool { return true }

// InfiniteExecutionViolatesLiveness records an execution fingerprint that
// repeats under a fair strategy while every monitor is cold.
type InfiniteExecutionViolatesLiveness struct{}

func (e *InfiniteExecutionViolatesLiveness) Error() string {
	return "infinite execution violates liveness"
}
func (*InfiniteExecutionViolatesLiveness) Kind() Kind { return KindInfiniteExecution }
func (*InfiniteExecutionViolatesLiveness) Fatal() bool { return true }

// ReplayDiverged records the step index and token mismatch between a
// recorded trace and the live run attempting to replay it.
type ReplayDiverged struct {
	StepIndex int
	Expected  string
	Actual    string
}

func (e *ReplayDiverged) Error() string {
	return fmt.Sprintf("replay diverged at step %d: expected %s, got %s", e.StepIndex, e.Expected, e.Actual)
}
func (*ReplayDiverged) Kind() Kind { return KindReplayDiverged }
func (*ReplayDiverged) Fatal() bool { return true }

// StepBudgetExceeded is informational: hitting a scheduling step budget is
// not itself a bug, per spec.md §4.7.
type StepBudgetExceeded struct {
	Budget int
	Fair   bool
}

func (e *StepBudgetExceeded) Error() string {
	kind := "unfair"
	if e.Fair {
		kind = "fair"
	}
	return fmt.Sprintf("%s scheduling step budget of %d exceeded", kind, e.Budget)
}
func (*StepBudgetExceeded) Kind() Kind { return KindStepBudgetExceeded }
func (*StepBudgetExceeded) Fatal() bool { return false }

// RewrittenArtifactMismatch records a rewritten-artifact signature that does
// not match the runtime's expected {tool_version, configuration_hash}.
type RewrittenArtifactMismatch struct {
	ExpectedSignature string
	ActualSignature   string
}

func (e *RewrittenArtifactMismatch) Error() string {
	return fmt.Sprintf("rewritten artifact signature mismatch: expected %s, got %s",
		e.ExpectedSignature, e.ActualSignature)
}
func (*RewrittenArtifactMismatch) Kind() Kind { return KindRewrittenArtifactMismatch }
func (*RewrittenArtifactMismatch) Fatal() bool { return true }

// MonitorReentrant records a Monitor[T] call made re-entrantly from inside
// a monitor handler, resolving Open Question 3 of SPEC_FULL.md as a
// first-class error rather than a silent no-op or a panic.
type MonitorReentrant struct {
	Monitor string
}

func (e *MonitorReentrant) Error() string {
	return fmt.Sprintf("re-entrant call into monitor %q", e.Monitor)
}
func (*MonitorReentrant) Kind() Kind { return KindMonitorReentrant }
func (*MonitorReentrant) Fatal() bool { return true }
