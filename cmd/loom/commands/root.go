package commands

import (
	"github.com/spf13/cobra"

	"github.com/roasbeef/loom/internal/config"
	"github.com/roasbeef/loom/internal/log"
)

var (
	// configPath is the optional YAML configuration file (internal/config).
	configPath string

	// strategyFlag, iterationsFlag, seedFlag, tracePathFlag overlay
	// their matching config.Configuration fields; unset means "keep
	// whatever configPath (or the defaults) already set" (CLI flags
	// win only when actually provided).
	strategyFlag   string
	iterationsFlag uint
	seedFlag       uint64
	tracePathFlag  string

	// verbosityFlag sets internal/log's level for the whole process.
	verbosityFlag string

	// reportPathFlag, if set, writes an HTML report (internal/report) for
	// the run's outcome to this path.
	reportPathFlag string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "A controlled actor runtime for systematic concurrency testing",
	Long: `loom runs actor-model test scenarios under a deterministic
scheduler, repeating each one under different scheduling decisions to
surface race conditions and liveness violations that a plain goroutine
race would only find by chance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetLevel(log.LevelFromVerbosity(verbosityFlag))
		return nil
	},
}

// Execute runs the CLI, returning the error (if any) main.go should map to
// a process exit code via ExitCodeFor.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "",
		"Path to a loom YAML configuration file",
	)
	rootCmd.PersistentFlags().StringVar(
		&strategyFlag, "strategy", "",
		"Scheduling strategy: random, dfs, pct(k), fairpct(k), probabilistic(p), priority, replay(path)",
	)
	rootCmd.PersistentFlags().UintVar(
		&iterationsFlag, "iterations", 0,
		"Number of test iterations to run (0 keeps the config/default value)",
	)
	rootCmd.PersistentFlags().Uint64Var(
		&seedFlag, "seed", 0,
		"Fix the random seed so every iteration is reproducible",
	)
	rootCmd.PersistentFlags().StringVar(
		&tracePathFlag, "trace-out", "",
		"Write the schedule trace of a failing iteration to this path",
	)
	rootCmd.PersistentFlags().StringVar(
		&verbosityFlag, "verbosity", "info",
		"Log verbosity: off, error, warn, info, debug",
	)
	rootCmd.PersistentFlags().StringVar(
		&reportPathFlag, "report", "",
		"Write an HTML report of the run's outcome to this path",
	)

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mcpCmd)
}

// resolveConfig loads configPath (or the documented defaults) and overlays
// the persistent flags a user actually set, matching internal/config's
// flags-win-over-file precedence.
func resolveConfig(cmd *cobra.Command) (config.Configuration, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return config.Configuration{}, err
	}

	if strategyFlag != "" {
		cfg.Strategy = strategyFlag
	}
	if iterationsFlag > 0 {
		cfg.TestingIterations = iterationsFlag
	}
	if cmd.Flags().Changed("seed") {
		seed := seedFlag
		cfg.RandomSeed = &seed
	}
	if tracePathFlag != "" {
		cfg.ScheduleTracePath = tracePathFlag
	}
	if cmd.Flags().Changed("verbosity") {
		cfg.Verbosity = config.Verbosity(verbosityFlag)
	}

	if err := cfg.Validate(); err != nil {
		return config.Configuration{}, err
	}
	log.SetLevel(log.LevelFromVerbosity(string(cfg.Verbosity)))
	return cfg, nil
}
