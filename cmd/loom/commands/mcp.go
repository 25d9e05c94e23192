package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roasbeef/loom/internal/config"
	"github.com/roasbeef/loom/internal/mcpserver"
)

// defaultMCPScenario is run when an MCP run_test call omits Scenario,
// matching internal/scenario's own built-in registration.
const defaultMCPScenario = "pingpong"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve loom's run_test tool over stdio MCP",
	Long: `mcp starts a stdio MCP server exposing a single run_test tool, so an
external agent or editor can drive loom's test runner without shelling out
to this binary.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	server := mcpserver.New(runForMCP)
	if err := mcpserver.Serve(cmd.Context(), server); err != nil {
		return withExitCode(2, err)
	}
	return nil
}

// runForMCP adapts runScenario to mcpserver.Runner: it resolves the named
// scenario (defaulting to "pingpong"), runs it, and reports a compact
// result plus a human-readable one-line summary for the tool's text
// content block.
func runForMCP(ctx context.Context, scenarioName string, cfg config.Configuration) (mcpserver.RunTestResult, error) {
	if scenarioName == "" {
		scenarioName = defaultMCPScenario
	}

	scn, err := lookupScenario(scenarioName)
	if err != nil {
		return mcpserver.RunTestResult{}, err
	}

	summary, err := runScenario(cfg, scn)
	if err != nil {
		return mcpserver.RunTestResult{}, err
	}

	if summary.FailingIteration < 0 {
		return mcpserver.RunTestResult{
			Verdict:    "pass",
			Iterations: len(summary.Iterations),
			Summary: fmt.Sprintf(
				"%s: no bug found across %d iteration(s)",
				scenarioName, len(summary.Iterations),
			),
		}, nil
	}

	failing := summary.Iterations[summary.FailingIteration]
	return mcpserver.RunTestResult{
		Verdict:     string(failing.Verdict),
		Iterations:  len(summary.Iterations),
		FailingSeed: summary.FailingSeed,
		Summary: fmt.Sprintf(
			"%s: iteration %d (seed %d) failed: %s",
			scenarioName, failing.Index, summary.FailingSeed, failing.Err,
		),
	}, nil
}
