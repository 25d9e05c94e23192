package queue

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/roasbeef/loom/internal/runtime/event"
)

// TestPropertyPerInboxFIFO is the randomized counterpart to TestFIFOOrder:
// for any sequence of enqueued events with nothing deferred, dequeuing
// drains them in exactly the order they were enqueued (P1).
func TestPropertyPerInboxFIFO(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kinds := rapid.SliceOfN(rapid.StringMatching(`[A-Z][0-9]?`), 0, 30).Draw(t, "kinds")

		ib := New()
		for _, k := range kinds {
			_, _ = ib.Enqueue(ev(k), event.NoGroup)
		}

		for _, want := range kinds {
			got, outcome := ib.Dequeue()
			if outcome != Got {
				t.Fatalf("expected Got dequeuing %q, got outcome %v", want, outcome)
			}
			if got.Event.Kind() != want {
				t.Fatalf("FIFO violated: expected %q, got %q", want, got.Event.Kind())
			}
		}

		if _, outcome := ib.Dequeue(); outcome != Empty {
			t.Fatalf("expected Empty after draining, got %v", outcome)
		}
	})
}

// TestPropertyDeferralPreservesRelativeOrder generalizes
// TestDeferralPreservesOrder: with one kind deferred for the lifetime of
// the enqueue phase, dequeuing first drains every other kind in their
// original relative order; recalling the deferred kind then drains it in
// its own original relative order (P4) — deferral changes *when* a kind's
// events surface, never the order among events of the same deferred kind,
// nor the order among the events that were never deferred.
func TestPropertyDeferralPreservesRelativeOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kinds := rapid.SliceOfN(rapid.SampledFrom([]string{"A", "B", "C"}), 0, 30).Draw(t, "kinds")
		deferredKind := "A"

		ib := New()
		ib.SetDeferred(deferredKind)
		for _, k := range kinds {
			_, _ = ib.Enqueue(ev(k), event.NoGroup)
		}

		var wantDeferred, wantOthers []string
		for _, k := range kinds {
			if k == deferredKind {
				wantDeferred = append(wantDeferred, k)
			} else {
				wantOthers = append(wantOthers, k)
			}
		}

		var gotOthers []string
		for {
			got, outcome := ib.Dequeue()
			if outcome == Got {
				gotOthers = append(gotOthers, got.Event.Kind())
				continue
			}
			break
		}
		if len(gotOthers) != len(wantOthers) {
			t.Fatalf("non-deferred phase: want %v, got %v", wantOthers, gotOthers)
		}
		for i := range wantOthers {
			if gotOthers[i] != wantOthers[i] {
				t.Fatalf("non-deferred order violated: want %v, got %v", wantOthers, gotOthers)
			}
		}

		ib.RecallDeferred(deferredKind)

		var gotDeferred []string
		for {
			got, outcome := ib.Dequeue()
			if outcome == Got {
				gotDeferred = append(gotDeferred, got.Event.Kind())
				continue
			}
			break
		}
		if len(gotDeferred) != len(wantDeferred) {
			t.Fatalf("deferred phase: want %v, got %v", wantDeferred, gotDeferred)
		}
		for i := range wantDeferred {
			if gotDeferred[i] != wantDeferred[i] {
				t.Fatalf("deferred order violated: want %v, got %v", wantDeferred, gotDeferred)
			}
		}
	})
}

// TestPropertyHaltDropsAllFurtherEnqueues: once Halt is called, any sequence
// of further enqueues is reported Halted and dequeue never again returns
// Got, regardless of what was queued before the halt (P6).
func TestPropertyHaltDropsAllFurtherEnqueues(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		preHalt := rapid.SliceOfN(rapid.StringMatching(`[A-Z]`), 0, 10).Draw(t, "preHalt")
		postHalt := rapid.SliceOfN(rapid.StringMatching(`[A-Z]`), 0, 10).Draw(t, "postHalt")

		ib := New()
		for _, k := range preHalt {
			_, _ = ib.Enqueue(ev(k), event.NoGroup)
		}
		ib.Halt()

		for _, k := range postHalt {
			res, _ := ib.Enqueue(ev(k), event.NoGroup)
			if res != Halted {
				t.Fatalf("enqueue after Halt returned %v, want Halted", res)
			}
		}

		if _, outcome := ib.Dequeue(); outcome != Empty {
			t.Fatalf("dequeue after Halt returned %v, want Empty", outcome)
		}
	})
}
