package log

import (
	"os"

	"github.com/btcsuite/btclog/v2"
)

// Subsystem tags used to prefix log lines emitted by each runtime component.
// These mirror the component table in SPEC_FULL.md (C1-C11).
const (
	SubsystemScheduler = "SCHD"
	SubsystemActor     = "ACTR"
	SubsystemQueue     = "QUEU"
	SubsystemFSM       = "FSM "
	SubsystemMonitor   = "MNTR"
	SubsystemTask      = "TASK"
	SubsystemContext   = "CTXT"
	SubsystemLiveness  = "LIVE"
	SubsystemTrace     = "TRCE"
	SubsystemRunstore  = "STOR"
)

var (
	// consoleHandler writes human-readable log lines to stdout. It is
	// always active, regardless of whether file rotation is configured.
	consoleHandler = btclog.NewDefaultHandler(os.Stdout)

	// rootHandler is the current top-level btclog.Handler. It starts out
	// as just the console handler and is swapped for a HandlerSet once
	// InitRotator has been called.
	rootHandler btclog.Handler = consoleHandler

	// fileWriter is non-nil once file-backed rotation has been enabled.
	fileWriter *RotatingLogWriter
)

func init() {
	rootHandler.SetLevel(btclog.LevelInfo)
}

// Logger returns a btclog.Logger tagged with the given subsystem. Every
// runtime package holds one of these as a package-level var, e.g.
//
//	var log = logpkg.Logger(logpkg.SubsystemScheduler)
func Logger(subsystem string) btclog.Logger {
	return btclog.NewSLogger(rootHandler.SubSystem(subsystem))
}

// SetLevel changes the logging level for every subsystem sharing the root
// handler. Matches configuration.Verbosity (SPEC_FULL.md §1.3).
func SetLevel(level btclog.Level) {
	rootHandler.SetLevel(level)
}

// LevelFromVerbosity maps the enumerated configuration verbosity values
// (off, error, warn, info, debug) from spec.md §6 onto btclog levels. An
// unrecognized value falls back to Info.
func LevelFromVerbosity(verbosity string) btclog.Level {
	switch verbosity {
	case "off":
		return btclog.LevelOff
	case "error":
		return btclog.LevelError
	case "warn":
		return btclog.LevelWarn
	case "debug":
		return btclog.LevelDebug
	case "info", "":
		return btclog.LevelInfo
	default:
		return btclog.LevelInfo
	}
}

// InitRotator enables a rotating on-disk log file alongside the console
// handler. Safe to call at most once during process startup. No loom
// command calls it, so the CLI logs to the console only.
func InitRotator(cfg *RotatorConfig) error {
	fileWriter = NewRotatingLogWriter()
	if err := fileWriter.Init(cfg); err != nil {
		return err
	}

	fileHandler := btclog.NewDefaultHandler(fileWriter)
	rootHandler = NewHandlerSet(consoleHandler, fileHandler)

	return nil
}
