package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roasbeef/loom/internal/runstore"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past test runs, or the failing iterations of one run",
	Long: `history surfaces the runstore ledger populated by --telemetry runs.
With no argument it lists the most recent runs; given a run id it lists
that run's failing iterations with their verdict, error message, step count
and duration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath, err := runstore.DefaultDBPath()
	if err != nil {
		return withExitCode(2, err)
	}
	store, err := runstore.Open(dbPath)
	if err != nil {
		return withExitCode(2, err)
	}
	defer store.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		iterations, err := store.FailingIterations(ctx, args[0])
		if err != nil {
			return withExitCode(2, err)
		}
		if len(iterations) == 0 {
			fmt.Fprintf(out, "run %s has no failing iterations on record\n", args[0])
			return nil
		}
		for _, it := range iterations {
			fmt.Fprintf(out, "iteration %d: %s (%s) steps=%d duration=%s\n",
				it.Index, it.Verdict, it.ErrorMessage, it.StepsTaken, it.Duration)
		}
		return nil
	}

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return withExitCode(2, err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no recorded runs")
		return nil
	}
	for _, r := range runs {
		status := "running"
		if r.ExitCode != nil {
			status = fmt.Sprintf("exit=%d", *r.ExitCode)
		}
		fmt.Fprintf(out, "%s  %s  subject=%s strategy=%s iterations=%d %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Subject, r.Strategy, r.Iterations, status)
	}
	return nil
}
