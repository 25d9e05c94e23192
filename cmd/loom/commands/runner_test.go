package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/loom/internal/config"
	loomerrors "github.com/roasbeef/loom/internal/runtime/errors"
	"github.com/roasbeef/loom/internal/runstore"
	"github.com/roasbeef/loom/internal/scenario"
)

func TestVerdictForClassifiesEachKind(t *testing.T) {
	require.Equal(t, runstore.VerdictPass, verdictFor(nil))
	require.Equal(t, runstore.VerdictStepBudget, verdictFor(&loomerrors.StepBudgetExceeded{Budget: 10}))
	require.Equal(t, runstore.VerdictReplayDivergence, verdictFor(&loomerrors.ReplayDiverged{StepIndex: 2}))
	require.Equal(t, runstore.VerdictBug, verdictFor(&loomerrors.AssertionViolation{Msg: "bad"}))
}

func TestRunOneIterationPassesForPingPong(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy = "dfs"

	scn, ok := scenario.Lookup("pingpong")
	require.True(t, ok)

	result, err := runOneIteration(0, 1, cfg, scn)
	require.NoError(t, err)
	require.Equal(t, runstore.VerdictPass, result.Verdict)
	require.Nil(t, result.Err)
	require.Positive(t, result.StepsTaken)
}

func TestRunScenarioRunsEveryIterationWhenNoneFail(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy = "random"
	cfg.TestingIterations = 5

	pp, ok := scenario.Lookup("pingpong")
	require.True(t, ok)

	summary, err := runScenario(cfg, pp)
	require.NoError(t, err)
	require.Equal(t, -1, summary.FailingIteration)
	require.Len(t, summary.Iterations, 5)
}

func TestRunScenarioHonorsFixedSeedAcrossIterations(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy = "random"
	cfg.TestingIterations = 3
	seed := uint64(42)
	cfg.RandomSeed = &seed

	pp, ok := scenario.Lookup("pingpong")
	require.True(t, ok)

	summary, err := runScenario(cfg, pp)
	require.NoError(t, err)
	require.Len(t, summary.Iterations, 3)
}

func TestWriteReportWritesHTMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.html")

	result := IterationResult{
		Index:      0,
		Verdict:    runstore.VerdictPass,
		StepsTaken: 12,
	}

	require.NoError(t, writeReport(path, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Iteration 0")
}

func TestLookupScenarioRejectsUnknownName(t *testing.T) {
	_, err := lookupScenario("does-not-exist")
	require.Error(t, err)
}
