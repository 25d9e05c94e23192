// Package mcpserver exposes loom's test runner as a single stdio MCP tool,
// so an external agent or editor can drive `loom test` programmatically
// without shelling out to the CLI binary. This is the "external driver"
// boundary SPEC_FULL.md §2 calls for in place of a gRPC/websocket service —
// spec.md's Non-goals rule out network I/O for the core, and stdio MCP
// gives the same external-interface surface without opening a socket.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/roasbeef/loom/internal/config"
)

// RunTestParams is the run_test tool's JSON input. Every field is optional;
// omitted fields fall back to whatever ConfigPath loads, or loom's
// documented defaults if ConfigPath is also empty.
type RunTestParams struct {
	ConfigPath string  `json:"config_path,omitempty"`
	Strategy   string  `json:"strategy,omitempty"`
	Iterations uint    `json:"iterations,omitempty"`
	Seed       *uint64 `json:"seed,omitempty"`

	// Scenario names the registered internal/scenario.Scenario to run.
	// Left to the injected Runner to default (the CLI runner falls back
	// to "pingpong") since this package never imports internal/scenario.
	Scenario string `json:"scenario,omitempty"`
}

// RunTestResult is the run_test tool's JSON output.
type RunTestResult struct {
	Verdict       string `json:"verdict"`
	Iterations    int    `json:"iterations"`
	FailingSeed   uint64 `json:"failing_seed,omitempty"`
	TextTracePath string `json:"text_trace_path,omitempty"`
	Summary       string `json:"summary"`
}

// Runner executes a full `loom test` invocation of the named scenario
// against cfg and reports its outcome. scenario is the raw, possibly empty,
// RunTestParams.Scenario string; the Runner decides the default. Satisfied
// by cmd/loom/commands' test runner; kept as a plain function type here so
// this package never needs to import cmd or internal/scenario.
type Runner func(ctx context.Context, scenario string, cfg config.Configuration) (RunTestResult, error)

// buildConfig loads the base configuration (from args.ConfigPath, or
// defaults if empty) and overlays the tool call's explicit arguments on top
// of it, mirroring the flags-win-over-file precedence internal/config
// documents for the CLI.
func buildConfig(args RunTestParams) (config.Configuration, error) {
	cfg, err := config.LoadFile(args.ConfigPath)
	if err != nil {
		return config.Configuration{}, fmt.Errorf("loading configuration: %w", err)
	}

	if args.Strategy != "" {
		cfg.Strategy = args.Strategy
	}
	if args.Iterations > 0 {
		cfg.TestingIterations = args.Iterations
	}
	if args.Seed != nil {
		cfg.RandomSeed = args.Seed
	}

	if err := cfg.Validate(); err != nil {
		return config.Configuration{}, err
	}
	return cfg, nil
}

// New builds a stdio MCP server exposing a single run_test tool, wired to
// run.
func New(run Runner) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "loom",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "run_test",
		Description: "Run loom's controlled concurrency test harness against " +
			"a configuration and report whether a bug was found.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RunTestParams) (
		*mcp.CallToolResult, RunTestResult, error) {

		cfg, err := buildConfig(args)
		if err != nil {
			return nil, RunTestResult{}, err
		}

		result, err := run(ctx, args.Scenario, cfg)
		if err != nil {
			return nil, RunTestResult{}, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Summary}},
		}, result, nil
	})

	return server
}

// Serve runs server over stdio until the client disconnects or ctx is
// cancelled.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
