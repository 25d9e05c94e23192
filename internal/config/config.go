// Package config implements loom's configuration surface (SPEC_FULL.md
// §1.3): the enumerated fields from spec.md §6, loaded from an optional
// YAML file and then overlaid with cobra flags (flags win), plus the
// strategy grammar parser in strategy.go that turns a string like "pct(3)"
// into a live scheduler.Strategy.
//
// Grounded on the teacher's own config surface: gopkg.in/yaml.v3 is used
// the same way the teacher marshals payloads in its queue/store layer, and
// the flag-overlay convention mirrors cmd/substrate/commands/root.go's
// persistent-flag globals.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Verbosity mirrors spec.md §6's enumerated log levels.
type Verbosity string

const (
	VerbosityOff   Verbosity = "off"
	VerbosityError Verbosity = "error"
	VerbosityWarn  Verbosity = "warn"
	VerbosityInfo  Verbosity = "info"
	VerbosityDebug Verbosity = "debug"
)

// Configuration is the full enumerated configuration surface from spec.md
// §6.
type Configuration struct {
	// TestingIterations is how many iterations `loom test` runs before
	// reporting "no bug found".
	TestingIterations uint `yaml:"testing_iterations"`

	// MaxUnfairSchedulingSteps bounds a single iteration under an unfair
	// strategy (anything but FairPCT); exceeding it raises
	// StepBudgetExceeded{Fair: false} rather than a user-visible bug.
	MaxUnfairSchedulingSteps uint `yaml:"max_unfair_scheduling_steps"`

	// MaxFairSchedulingSteps is the same bound, used instead when the
	// active strategy reports Fair() == true.
	MaxFairSchedulingSteps uint `yaml:"max_fair_scheduling_steps"`

	// Strategy is the unparsed strategy grammar string; see strategy.go.
	Strategy string `yaml:"strategy"`

	// RandomSeed seeds every strategy that consumes randomness. Nil
	// means "pick one and record it", so a failing run can always be
	// replayed by seed alone.
	RandomSeed *uint64 `yaml:"random_seed"`

	// LivenessTemperatureThreshold is the liveness checker's (C10)
	// threshold; see spec.md §4.8.
	LivenessTemperatureThreshold uint `yaml:"liveness_temperature_threshold"`

	// TimeoutDelay is loaded from the configuration file (default 10),
	// but nothing in loom reads it; an iteration is bounded only by the
	// step budgets above.
	TimeoutDelay uint `yaml:"timeout_delay"`

	// Verbosity sets internal/log's level for this run.
	Verbosity Verbosity `yaml:"verbosity"`

	// Telemetry enables the run-history store (internal/runstore); off
	// by default since a one-shot CI invocation has nothing to append
	// history to.
	Telemetry bool `yaml:"telemetry"`

	// ScheduleTracePath, when non-empty, makes each iteration record a
	// schedule trace; `loom test` writes a failing iteration's trace to
	// the --trace-out path, or to loom-trace.txt when that flag is unset.
	// `loom replay` takes its trace file as an argument instead.
	ScheduleTracePath string `yaml:"schedule_trace_path"`
}

// Default returns the documented defaults for every field, used as the
// starting point for both LoadFile and the CLI's flag defaults.
func Default() Configuration {
	return Configuration{
		TestingIterations:            1,
		MaxUnfairSchedulingSteps:     10_000,
		MaxFairSchedulingSteps:       100_000,
		Strategy:                     "random",
		LivenessTemperatureThreshold: 150,
		TimeoutDelay:                 10,
		Verbosity:                    VerbosityInfo,
		Telemetry:                    false,
	}
}

// LoadFile reads and parses a YAML configuration file, starting from
// Default() so any field the file omits keeps its documented default. An
// empty path is not an error; it just returns the defaults unchanged, since
// the config file itself is optional (spec.md §6: CLI flags alone are a
// valid invocation).
func LoadFile(path string) (Configuration, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first structural problem with cfg, if any. It does
// not parse Strategy itself (see BuildStrategy); it only checks the fields
// plain YAML/flag parsing can't constrain on its own.
func (c Configuration) Validate() error {
	if c.TestingIterations == 0 {
		return fmt.Errorf("testing_iterations must be at least 1")
	}
	if c.MaxUnfairSchedulingSteps == 0 {
		return fmt.Errorf("max_unfair_scheduling_steps must be at least 1")
	}
	if c.MaxFairSchedulingSteps == 0 {
		return fmt.Errorf("max_fair_scheduling_steps must be at least 1")
	}
	switch c.Verbosity {
	case VerbosityOff, VerbosityError, VerbosityWarn, VerbosityInfo, VerbosityDebug:
	default:
		return fmt.Errorf("unknown verbosity %q", c.Verbosity)
	}
	return nil
}
