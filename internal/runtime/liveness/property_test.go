package liveness

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/roasbeef/loom/internal/runtime/actor"
	"github.com/roasbeef/loom/internal/runtime/monitor"
)

// TestPropertyNoLivenessBugWhileHotStreaksStayUnderThreshold is P5,
// restricted to the half the temperature counter alone is responsible for:
// as long as Guard never stays Hot for more consecutive steps than
// threshold, OnStep never reports a PotentialLivenessBug, regardless of how
// many cold/hot cycles the run goes through. (A run that ends Hot forever
// is exactly what the threshold exists to catch — this property only
// constrains runs that keep clearing back to cold in time.)
func TestPropertyNoLivenessBugWhileHotStreaksStayUnderThreshold(top *testing.T) {
	rapid.Check(top, func(t *rapid.T) {
		threshold := rapid.IntRange(1, 10).Draw(t, "threshold")
		numCycles := rapid.IntRange(0, 8).Draw(t, "numCycles")

		guard := buildGuard(top)
		monitors := map[string]*monitor.Machine{"Guard": guard}
		actors := map[any]*actor.Actor{}

		c := New(threshold, false)

		for i := 0; i < numCycles; i++ {
			hotSteps := rapid.IntRange(1, threshold).Draw(t, "hotSteps")

			if err := guard.ProcessEvent(gotoEvent("Request")); err != nil {
				t.Fatalf("entering Waiting: %v", err)
			}
			for s := 0; s < hotSteps; s++ {
				if err := c.OnStep(monitors, actors); err != nil {
					t.Fatalf("unexpected liveness bug after %d/%d hot steps: %v", s+1, hotSteps, err)
				}
			}

			if err := guard.ProcessEvent(gotoEvent("Response")); err != nil {
				t.Fatalf("returning to Idle: %v", err)
			}
			if err := c.OnStep(monitors, actors); err != nil {
				t.Fatalf("unexpected liveness bug on cold step: %v", err)
			}
			if c.Temperature() != 0 {
				t.Fatalf("temperature did not reset to 0 after a cold step, got %d", c.Temperature())
			}
		}
	})
}
