package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOnlyStepBudgetExceededIsNonFatal(t *testing.T) {
	fatal := []RuntimeError{
		&AssertionViolation{Msg: "x"},
		&UnhandledEvent{Actor: "a", State: "s", EventKind: "k"},
		&UncontrolledTaskDetected{Method: "Run"},
		&ReceiveOnHaltedActor{Actor: "a"},
		&NameAlreadyBound{Name: "n"},
		&QueueAssertViolated{EventKind: "k", Limit: 1},
		&PotentialLivenessBug{Monitor: "m", State: "s"},
		&InfiniteExecutionViolatesLiveness{},
		&ReplayDiverged{StepIndex: 1, Expected: "a", Actual: "b"},
		&RewrittenArtifactMismatch{ExpectedSignature: "a", ActualSignature: "b"},
		&MonitorReentrant{Monitor: "m"},
	}
	for _, e := range fatal {
		require.Truef(t, e.Fatal(), "%T should be Fatal", e)
	}

	require.False(t, (&StepBudgetExceeded{Budget: 10, Fair: false}).Fatal())
}

func TestKindsAreDistinct(t *testing.T) {
	errs := []RuntimeError{
		&AssertionViolation{},
		&UnhandledEvent{},
		&UncontrolledTaskDetected{},
		&ReceiveOnHaltedActor{},
		&NameAlreadyBound{},
		&QueueAssertViolated{},
		&PotentialLivenessBug{},
		&InfiniteExecutionViolatesLiveness{},
		&ReplayDiverged{},
		&StepBudgetExceeded{},
		&RewrittenArtifactMismatch{},
		&MonitorReentrant{},
	}

	seen := make(map[Kind]bool)
	for _, e := range errs {
		require.Falsef(t, seen[e.Kind()], "duplicate Kind %s", e.Kind())
		seen[e.Kind()] = true
	}
}

func TestStepBudgetExceededMessageNamesFairness(t *testing.T) {
	require.Contains(t, (&StepBudgetExceeded{Budget: 5, Fair: true}).Error(), "fair")
	require.Contains(t, (&StepBudgetExceeded{Budget: 5, Fair: false}).Error(), "unfair")
}
