package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roasbeef/loom/internal/runstore"
)

var replayCmd = &cobra.Command{
	Use:   "replay <trace-file> <scenario>",
	Short: "Re-run a scenario against a previously recorded schedule trace",
	Long: `replay drives a scenario through the exact scheduling and
nondeterministic choices recorded in trace-file, used to reproduce a bug
'loom test' reported. A mismatch between the trace and what the scenario
actually does this time is a ReplayDiverged error (exit code 3) — usually a
sign that the scenario or the runtime itself changed since the trace was
recorded.`,
	Args: cobra.ExactArgs(2),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	tracePath, scenarioName := args[0], args[1]

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return withExitCode(2, err)
	}
	cfg.Strategy = fmt.Sprintf("replay(%s)", tracePath)
	cfg.TestingIterations = 1

	scn, err := lookupScenario(scenarioName)
	if err != nil {
		return withExitCode(2, err)
	}

	result, err := runOneIteration(0, 0, cfg, scn)
	if err != nil {
		return withExitCode(2, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "loom replay %s against %s: %s\n",
		tracePath, scenarioName, result.Verdict)

	writeReportIfRequested(cmd, result)

	switch result.Verdict {
	case runstore.VerdictPass, runstore.VerdictStepBudget:
		return nil
	case runstore.VerdictReplayDivergence:
		return withExitCode(3, result.Err)
	default:
		return withExitCode(1, result.Err)
	}
}
