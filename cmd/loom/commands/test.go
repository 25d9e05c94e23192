package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roasbeef/loom/internal/config"
	"github.com/roasbeef/loom/internal/runstore"
	"github.com/roasbeef/loom/internal/runtime/trace"
)

var testCmd = &cobra.Command{
	Use:   "test <scenario>",
	Short: "Run a registered scenario under the deterministic scheduler",
	Long: `test runs a registered scenario for --iterations iterations, trying a
different scheduling decision each time, and reports the first iteration
(if any) that triggers a safety or liveness violation.`,
	Args: cobra.ExactArgs(1),
	RunE: runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return withExitCode(2, err)
	}

	scn, err := lookupScenario(args[0])
	if err != nil {
		return withExitCode(2, err)
	}

	summary, err := runScenario(cfg, scn)
	if err != nil {
		return withExitCode(2, err)
	}

	if cfg.Telemetry {
		if err := persistSummary(args[0], cfg, summary); err != nil {
			// A history-store write failure doesn't invalidate a
			// completed test run; surface it but keep the real
			// verdict's exit code.
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record run history: %v\n", err)
		}
	}

	printSummary(cmd, args[0], summary)

	if summary.FailingIteration < 0 {
		return nil
	}

	failing := summary.Iterations[summary.FailingIteration]
	if failing.Verdict == runstore.VerdictReplayDivergence {
		return withExitCode(3, failing.Err)
	}
	return withExitCode(1, fmt.Errorf(
		"iteration %d (seed %d) failed: %w",
		summary.FailingIteration, summary.FailingSeed, failing.Err,
	))
}

func printSummary(cmd *cobra.Command, scenarioName string, summary RunSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "loom test %s: ran %d iteration(s)\n", scenarioName, len(summary.Iterations))

	if summary.FailingIteration < 0 {
		fmt.Fprintln(out, "no bug found")
		if len(summary.Iterations) > 0 {
			writeReportIfRequested(cmd, summary.Iterations[len(summary.Iterations)-1])
		}
		return
	}

	failing := summary.Iterations[summary.FailingIteration]
	fmt.Fprintf(out, "iteration %d (seed %d): %s\n",
		failing.Index, summary.FailingSeed, failing.Err)

	if failing.Trace != nil {
		if err := writeFailingTrace(tracePathOrDefault(), failing.Trace); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to write schedule trace: %v\n", err)
		} else {
			fmt.Fprintf(out, "schedule trace written to %s\n", tracePathOrDefault())
		}
	}

	writeReportIfRequested(cmd, failing)
}

// writeReportIfRequested renders result to reportPathFlag when the user set
// --report, warning (rather than failing the command) if the write fails.
func writeReportIfRequested(cmd *cobra.Command, result IterationResult) {
	if reportPathFlag == "" {
		return
	}
	if err := writeReport(reportPathFlag, result); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to write report: %v\n", err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", reportPathFlag)
}

func tracePathOrDefault() string {
	if tracePathFlag != "" {
		return tracePathFlag
	}
	return "loom-trace.txt"
}

func writeFailingTrace(path string, tr *trace.Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = tr.WriteTo(f)
	return err
}

// persistSummary writes a Run plus every Iteration to the run-history
// store, opened at the default path (internal/runstore.DefaultDBPath) for
// every telemetry-enabled invocation.
func persistSummary(scenarioName string, cfg config.Configuration, summary RunSummary) error {
	dbPath, err := runstore.DefaultDBPath()
	if err != nil {
		return fmt.Errorf("resolving run-history database path: %w", err)
	}

	store, err := runstore.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening run-history database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	seed := uint64(0)
	if cfg.RandomSeed != nil {
		seed = *cfg.RandomSeed
	}
	if err := store.CreateRun(ctx, runstore.Run{
		ID:         summary.RunID,
		CreatedAt:  firstIterationStart(summary),
		Subject:    scenarioName,
		Strategy:   cfg.Strategy,
		Seed:       seed,
		Iterations: len(summary.Iterations),
	}); err != nil {
		return fmt.Errorf("creating run record: %w", err)
	}

	for _, it := range summary.Iterations {
		errKind, errMsg := "", ""
		if it.Err != nil {
			errKind, errMsg = string(it.Err.Kind()), it.Err.Error()
		}
		if err := store.RecordIteration(ctx, runstore.Iteration{
			RunID:        summary.RunID,
			Index:        it.Index,
			Verdict:      it.Verdict,
			ErrorKind:    errKind,
			ErrorMessage: errMsg,
			StepsTaken:   it.StepsTaken,
			Duration:     it.Duration,
		}); err != nil {
			return fmt.Errorf("recording iteration %d: %w", it.Index, err)
		}
	}

	exitCode := ExitCodeFor(nil)
	if summary.FailingIteration >= 0 {
		exitCode = 1
		if summary.Iterations[summary.FailingIteration].Verdict == runstore.VerdictReplayDivergence {
			exitCode = 3
		}
	}
	return store.FinishRun(ctx, summary.RunID, exitCode)
}

// firstIterationStart approximates the run's creation time as "now minus
// the total elapsed duration", since RunSummary doesn't separately track a
// wall-clock start; this stays purely informational (runstore never orders
// by duration), matching the teacher's own CreatedAt-is-best-effort usage
// in db.Store.
func firstIterationStart(summary RunSummary) (t time.Time) {
	t = time.Now()
	for _, it := range summary.Iterations {
		t = t.Add(-it.Duration)
	}
	return t
}
