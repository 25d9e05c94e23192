// Package task implements the controlled-task shim described in
// SPEC_FULL.md as C7 (spec.md §4.5): Run, Delay, Yield, WhenAll, WhenAny,
// Wait, GetAwaiter. Every operation here is backed by a scheduler.Operation,
// so awaiting a task is itself a scheduling point rather than a wait on a
// real OS primitive — matching spec.md §5's "Suspension points: ...
// ControlledTask.{Run,Delay,Yield,Wait,WhenAll,WhenAny,GetAwaiter}".
//
// Completion values are carried as fn.Result[T] (github.com/lightningnetwork/lnd/fn/v2),
// the same Future/Promise payload type the teacher's actor.Future[T]/Promise[T]
// pair uses for Ask results (internal/baselib/actor/interface.go). The task's
// own bookkeeping (waiters, completion value) stays in plain fields; an
// fn.Result is only constructed at the API boundary, once, when a result is
// handed back to the caller.
package task

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/roasbeef/loom/internal/runtime/actorid"
	"github.com/roasbeef/loom/internal/runtime/scheduler"
)

// ErrCancelled is returned (wrapped in an fn.Result) when an await is
// abandoned because the iteration's context was cancelled, e.g. after a
// step-budget abort.
var ErrCancelled = context.Canceled

// Task is a ControlledTask[T]: a unit of work running on its own
// scheduler.Operation, whose result becomes available once that operation
// Completes.
type Task[T any] struct {
	op    *scheduler.Operation
	sched *scheduler.Scheduler

	done    bool
	value   T
	err     error
	waiters []*scheduler.Operation
}

// Run schedules body as a new Enabled operation and returns immediately with
// a Task handle; body itself does not start executing until the scheduler's
// strategy first selects this operation (spec.md §4.5: "Run schedules a new
// Enabled operation").
func Run[T any](sched *scheduler.Scheduler, owner *actorid.ID, name string, body func() T) *Task[T] {
	t := &Task[T]{sched: sched}

	op := sched.Spawn(scheduler.Task, name, owner, func(op *scheduler.Operation) {
		t.complete(body(), nil)
	})
	t.op = op

	return t
}

// complete records the task's result and wakes every operation blocked on
// it, mirroring how rtcontext's Send calls scheduler.MarkEnabled when
// queue.Inbox.Enqueue reports a match for a receive-blocked operation.
func (t *Task[T]) complete(val T, err error) {
	t.value = val
	t.err = err
	t.done = true

	waiters := t.waiters
	t.waiters = nil
	for _, w := range waiters {
		t.sched.MarkEnabled(w)
	}
}

// Done reports whether the task's backing operation has Completed.
func (t *Task[T]) Done() bool { return t.done }

// Operation exposes the backing scheduler.Operation, e.g. so WhenAny can
// report which constituent finished first.
func (t *Task[T]) Operation() *scheduler.Operation { return t.op }

// GetAwaiter returns the Task itself; awaiting a ControlledTask and getting
// its awaiter are the same operation in this runtime (spec.md §4.5 lists
// them as distinct primitives only because the host language distinguishes
// "awaitable" from "awaiter").
func (t *Task[T]) GetAwaiter() *Task[T] { return t }

// Result returns the task's completion value as an fn.Result, valid once
// Done reports true.
func (t *Task[T]) Result() fn.Result[T] {
	if t.err != nil {
		return fn.Err[T](t.err)
	}
	return fn.Ok(t.value)
}

// Wait blocks callerOp until the task completes, returning its result. It
// is itself a scheduling point: callerOp is marked Blocked(BlockedOnTask)
// and re-marked Enabled by complete() once the task finishes.
func (t *Task[T]) Wait(callerOp *scheduler.Operation) fn.Result[T] {
	for !t.done {
		t.waiters = append(t.waiters, callerOp)
		if !t.sched.SchedulingPoint(callerOp, scheduler.Blocked, scheduler.BlockedOnTask) {
			return fn.Err[T](ErrCancelled)
		}
	}
	return t.Result()
}

// Yield is a scheduling point with no blocking condition: callerOp simply
// offers the scheduler a chance to run something else before continuing.
func Yield(sched *scheduler.Scheduler, callerOp *scheduler.Operation) bool {
	return sched.SchedulingPoint(callerOp, scheduler.Enabled, scheduler.BlockNone)
}

// Delay yields callerOp ticks times with BlockReason BlockedOnDelay. Per
// spec.md §4.7 ("Delay(n) operation is rewoken when the scheduler elects
// to; n is an ordering hint only"), this never removes callerOp from the
// Enabled set — there is no wall clock to wake it up on, so a true Blocked
// status would deadlock the iteration. BlockedOnDelay is carried purely for
// trace/report display.
func Delay(sched *scheduler.Scheduler, callerOp *scheduler.Operation, ticks int) bool {
	for i := 0; i < ticks; i++ {
		if !sched.SchedulingPoint(callerOp, scheduler.Enabled, scheduler.BlockedOnDelay) {
			return false
		}
	}
	return true
}

// WhenAll blocks callerOp until every task in tasks has completed, then
// returns their results in the same order.
func WhenAll[T any](sched *scheduler.Scheduler, callerOp *scheduler.Operation, tasks []*Task[T]) fn.Result[[]T] {
	for {
		allDone := true
		for _, tk := range tasks {
			if !tk.Done() {
				allDone = false
				tk.waiters = append(tk.waiters, callerOp)
			}
		}
		if allDone {
			vals := make([]T, len(tasks))
			for i, tk := range tasks {
				vals[i] = tk.value
			}
			return fn.Ok(vals)
		}
		if !sched.SchedulingPoint(callerOp, scheduler.Blocked, scheduler.BlockedOnTask) {
			return fn.Err[[]T](ErrCancelled)
		}
	}
}

// WhenAny blocks callerOp until at least one task in tasks has completed,
// then returns the index of the first completed task found (in slice
// order — ties among tasks that complete on the same scheduling step are
// broken deterministically by position, not by completion wall-time, since
// there is none).
func WhenAny[T any](sched *scheduler.Scheduler, callerOp *scheduler.Operation, tasks []*Task[T]) (int, fn.Result[T]) {
	for {
		for i, tk := range tasks {
			if tk.Done() {
				return i, tk.Result()
			}
		}
		for _, tk := range tasks {
			tk.waiters = append(tk.waiters, callerOp)
		}
		if !sched.SchedulingPoint(callerOp, scheduler.Blocked, scheduler.BlockedOnTask) {
			return -1, fn.Err[T](ErrCancelled)
		}
	}
}
