package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roasbeef/loom/internal/runtime/scheduler"
	"github.com/roasbeef/loom/internal/runtime/trace"
)

func TestBuildStrategyNamesAndKinds(t *testing.T) {
	cases := []struct {
		spec string
		typ  any
	}{
		{"random", &scheduler.RandomStrategy{}},
		{"dfs", &scheduler.DFSStrategy{}},
		{"pct(3)", &scheduler.PCTStrategy{}},
		{"fairpct(5)", &scheduler.FairPCTStrategy{}},
		{"probabilistic(0.3)", &scheduler.ProbabilisticStrategy{}},
		{"priority", &scheduler.ProbabilisticStrategy{}},
	}
	for _, c := range cases {
		got, err := BuildStrategy(c.spec, 42)
		require.NoErrorf(t, err, c.spec)
		require.IsTypef(t, c.typ, got, c.spec)
	}
}

func TestBuildStrategyRejectsMalformedSpec(t *testing.T) {
	_, err := BuildStrategy("pct(", 1)
	require.Error(t, err)

	_, err = BuildStrategy("nonsense", 1)
	require.Error(t, err)

	_, err = BuildStrategy("pct()", 1)
	require.Error(t, err)

	_, err = BuildStrategy("pct(notanumber)", 1)
	require.Error(t, err)

	_, err = BuildStrategy("random(5)", 1)
	require.Error(t, err)
}

func TestBuildStrategyReplayReadsTraceFile(t *testing.T) {
	tr := trace.New()
	tr.AppendSchedulingChoice(1)
	tr.AppendNondetChoice(0)

	dir := t.TempDir()
	path := filepath.Join(dir, "trace.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = tr.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := BuildStrategy("replay("+path+")", 0)
	require.NoError(t, err)
	require.IsType(t, &scheduler.ReplayStrategy{}, got)
}

func TestBuildStrategyReplayMissingPathErrors(t *testing.T) {
	_, err := BuildStrategy("replay(/nonexistent/trace.txt)", 0)
	require.Error(t, err)

	_, err = BuildStrategy("replay()", 0)
	require.Error(t, err)
}
