package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "tracefix",
	Short: "tracefix — LLM-driven root cause analysis and patching",
	Long: `tracefix runs a three-stage LLM pipeline over an APM error trace:
diagnose the root cause, plan a minimal fix, and generate a patched file.

Run artifacts (shared memory, full message history) are written to the
output directory; stage outcomes are mirrored to ~/.tracefix/ (SQLite)
for cross-run analytics.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
