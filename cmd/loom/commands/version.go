package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display loom's module version, VCS revision, and Go toolchain version.`,
	Run:   runVersion,
}

// runVersion prints version metadata pulled from the module's own embedded
// build info, the same source `go version -m` reads; the teacher's
// internal/build package stamps this via ldflags instead, but loom has no
// release pipeline of its own yet to wire ldflags through, so
// debug.ReadBuildInfo is the idiomatic fallback for a module without one.
func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()

	version, revision := "devel", ""
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" {
			version = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				revision = s.Value
			}
		}
	}

	fmt.Fprintf(out, "loom version %s", version)
	if revision != "" {
		fmt.Fprintf(out, " commit=%s", revision)
	}
	fmt.Fprintf(out, " go=%s\n", runtime.Version())
}
