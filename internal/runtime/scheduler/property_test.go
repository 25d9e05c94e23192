package scheduler

import (
	"fmt"
	"sync/atomic"
	"testing"

	"pgregory.net/rapid"
)

// runRacyOperations spawns numActors operations, each looping stepsPerActor
// times between SchedulingPoint calls, and returns the maximum number of
// those operations observed concurrently outside a blocked SchedulingPoint
// call. Used to black-box test P2: since these are real goroutines gated
// by buffered channels, a bug that let two operations run unblocked at once
// would show up here as a max above 1, not just as a stale Status field.
func runRacyOperations(sched *Scheduler, numActors, stepsPerActor int) int32 {
	var active, maxActive int32

	track := func() {
		n := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&maxActive)
			if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
				break
			}
		}
	}
	untrack := func() { atomic.AddInt32(&active, -1) }

	_ = sched.RunIteration(0, "root", func(root *Operation) {
		track()
		for i := 0; i < numActors; i++ {
			name := fmt.Sprintf("child-%d", i)
			sched.Spawn(ActorHandler, name, nil, func(child *Operation) {
				track()
				for s := 0; s < stepsPerActor; s++ {
					untrack()
					if !sched.SchedulingPoint(child, Enabled, BlockNone) {
						return
					}
					track()
				}
				untrack()
			})
		}
		for s := 0; s < stepsPerActor; s++ {
			untrack()
			if !sched.SchedulingPoint(root, Enabled, BlockNone) {
				return
			}
			track()
		}
		untrack()
	})

	return atomic.LoadInt32(&maxActive)
}

// TestPropertyAtMostOneOperationRunningAtOnce is P2: at every scheduler
// step, at most one operation is ever unblocked.
func TestPropertyAtMostOneOperationRunningAtOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numActors := rapid.IntRange(0, 6).Draw(t, "numActors")
		stepsPerActor := rapid.IntRange(1, 4).Draw(t, "stepsPerActor")
		seed := rapid.Uint64().Draw(t, "seed")

		sched := New(NewRandomStrategy(seed), Config{MaxUnfairSchedulingSteps: 10_000})
		if max := runRacyOperations(sched, numActors, stepsPerActor); max > 1 {
			t.Fatalf("observed %d operations running concurrently, want at most 1", max)
		}
	})
}

// replayScenario spawns a handful of operations that each consume a few
// NextInteger choices between SchedulingPoint calls and returns the
// resulting (operation, value) sequence in the order it was actually
// produced — a stand-in for spec.md §8's "(actor, event, state) triples",
// since this package has no actor/event/state concepts of its own to
// observe.
func replayScenario(sched *Scheduler, numActors int) []string {
	var seq []string

	_ = sched.RunIteration(0, "root", func(root *Operation) {
		for i := 0; i < numActors; i++ {
			name := fmt.Sprintf("child-%d", i)
			sched.Spawn(ActorHandler, name, nil, func(child *Operation) {
				for s := 0; s < 3; s++ {
					v := sched.NextInteger(4)
					seq = append(seq, fmt.Sprintf("%s:%d", name, v))
					if !sched.SchedulingPoint(child, Enabled, BlockNone) {
						return
					}
				}
			})
		}
		// root has nothing left to do itself; returning lets the
		// scheduler keep running the spawned children until each
		// completes.
	})

	return seq
}

// TestPropertyReplayDeterminism is P3: replaying a trace recorded from a
// run with a fixed seed and strategy reproduces the exact same sequence of
// choices.
func TestPropertyReplayDeterminism(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		numActors := rapid.IntRange(1, 4).Draw(t, "numActors")

		recorder := New(NewRandomStrategy(seed), Config{MaxUnfairSchedulingSteps: 10_000})
		tr := recorder.EnableRecording()
		original := replayScenario(recorder, numActors)

		replayed := New(NewReplayStrategy(tr), Config{MaxUnfairSchedulingSteps: 10_000})
		reproduced := replayScenario(replayed, numActors)

		if len(original) != len(reproduced) {
			t.Fatalf("replay produced %d choices, recording had %d", len(reproduced), len(original))
		}
		for i := range original {
			if original[i] != reproduced[i] {
				t.Fatalf("replay diverged at choice %d: recorded %q, replayed %q",
					i, original[i], reproduced[i])
			}
		}

		if diverger, ok := replayed.Strategy().(*ReplayStrategy); ok {
			if d := diverger.Diverged(); d != nil {
				t.Fatalf("ReplayStrategy reported a divergence: %v", d)
			}
		}
	})
}
