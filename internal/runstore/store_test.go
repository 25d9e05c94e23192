package runstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testStore creates a temporary, fully migrated run-history database for a
// single test.
func testStore(t *testing.T) *Store {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "runs.db")

	store, err := Open(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })

	return store
}

func TestCreateAndListRuns(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	run := Run{
		ID:         "run-1",
		CreatedAt:  time.Now(),
		Subject:    "raft-election",
		Strategy:   "dfs",
		Seed:       42,
		Iterations: 600,
	}
	require.NoError(t, store.CreateRun(ctx, run))

	require.NoError(t, store.RecordIteration(ctx, Iteration{
		RunID:     run.ID,
		Index:     0,
		Verdict:   VerdictPass,
		StepsTaken: 12,
	}))
	require.NoError(t, store.RecordIteration(ctx, Iteration{
		RunID:        run.ID,
		Index:        1,
		Verdict:      VerdictBug,
		ErrorKind:    "AssertionViolation",
		ErrorMessage: "Detected more than one leader.",
		StepsTaken:   37,
	}))

	require.NoError(t, store.FinishRun(ctx, run.ID, 1))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, run.ID, runs[0].ID)
	require.NotNil(t, runs[0].ExitCode)
	require.Equal(t, 1, *runs[0].ExitCode)

	failing, err := store.FailingIterations(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, failing, 1)
	require.Equal(t, "AssertionViolation", failing[0].ErrorKind)
}

func TestRecordIterationUpsert(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	run := Run{ID: "run-2", CreatedAt: time.Now(), Subject: "chord", Strategy: "random"}
	require.NoError(t, store.CreateRun(ctx, run))

	require.NoError(t, store.RecordIteration(ctx, Iteration{
		RunID: run.ID, Index: 0, Verdict: VerdictPass,
	}))
	require.NoError(t, store.RecordIteration(ctx, Iteration{
		RunID: run.ID, Index: 0, Verdict: VerdictBug, ErrorKind: "PotentialLivenessBug",
	}))

	failing, err := store.FailingIterations(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, failing, 1)
	require.Equal(t, "PotentialLivenessBug", failing[0].ErrorKind)
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(path))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".loom", "runs.db"), path)
}
