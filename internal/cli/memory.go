package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/tracefix/internal/memory"
	"github.com/lucasnoah/tracefix/internal/orchestrator"
)

var memoryDir string

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Show the shared memory from a previous run",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(memoryDir, orchestrator.MemoryFile)
		mem := memory.New()
		if err := mem.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}

		out := cmd.OutOrStdout()
		if rca, ok := mem.RCA(); ok {
			fmt.Fprintln(out, "rca:")
			fmt.Fprintf(out, "  error:     %s: %s\n", rca.ErrorType, rca.ErrorMessage)
			fmt.Fprintf(out, "  cause:     %s\n", rca.RootCause)
			fmt.Fprintf(out, "  location:  %s:%d (%s)\n", rca.AffectedFile, rca.AffectedLine, rca.AffectedFunction)
			for _, e := range rca.Evidence {
				fmt.Fprintf(out, "  evidence:  %s\n", e)
			}
			fmt.Fprintf(out, "  timestamp: %s\n", rca.Timestamp)
		} else {
			fmt.Fprintln(out, "rca: (not recorded)")
		}

		if plan, ok := mem.GetFixPlan(); ok {
			fmt.Fprintln(out, "fix_plan:")
			fmt.Fprintf(out, "  description: %s\n", plan.Description)
			for i, s := range plan.Steps {
				fmt.Fprintf(out, "  step %d:      %s\n", i+1, s)
			}
			for _, s := range plan.SafetyConsiderations {
				fmt.Fprintf(out, "  safety:      %s\n", s)
			}
			fmt.Fprintf(out, "  outcome:     %s\n", plan.ExpectedOutcome)
			fmt.Fprintf(out, "  timestamp:   %s\n", plan.Timestamp)
		} else {
			fmt.Fprintln(out, "fix_plan: (not recorded)")
		}

		if patch, ok := mem.GetPatch(); ok {
			fmt.Fprintln(out, "patch_metadata:")
			fmt.Fprintf(out, "  original:  %s\n", patch.OriginalFile)
			fmt.Fprintf(out, "  patched:   %s\n", patch.PatchedFile)
			for _, c := range patch.ChangesMade {
				fmt.Fprintf(out, "  change:    %s\n", c)
			}
			if len(patch.LinesModified) > 0 {
				fmt.Fprintf(out, "  lines:     %s\n", strings.Join(patch.LinesModified, ", "))
			}
			fmt.Fprintf(out, "  timestamp: %s\n", patch.Timestamp)
		} else {
			fmt.Fprintln(out, "patch_metadata: (not recorded)")
		}
		return nil
	},
}

func init() {
	memoryCmd.Flags().StringVar(&memoryDir, "output", "outputs", "run output directory to inspect")
}
