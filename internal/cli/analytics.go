package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/tracefix/internal/analytics"
	"github.com/lucasnoah/tracefix/internal/db"
)

var analyticsRunsLimit int

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Query pipeline outcomes across runs",
}

var analyticsStagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Per-stage success, degrade, and duration stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openAnalyticsDB()
		if err != nil {
			return err
		}
		defer d.Close()

		stats, err := analytics.Stages(d)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(stats) == 0 {
			fmt.Fprintln(out, "no recorded stage outcomes")
			return nil
		}
		fmt.Fprintf(out, "%-6s %6s %6s %6s %6s %9s %9s %10s %10s\n",
			"stage", "runs", "ok", "degr", "fail", "ok-rate", "degr-rate", "avg-ms", "p95-ms")
		for _, s := range stats {
			fmt.Fprintf(out, "%-6s %6d %6d %6d %6d %8.1f%% %8.1f%% %10.0f %10d\n",
				s.Stage, s.Runs, s.Succeeded, s.Degraded, s.Failed,
				s.SuccessRate*100, s.DegradeRate*100, s.AvgDurationMs, s.P95DurationMs)
		}
		return nil
	},
}

var analyticsRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Overall run totals and recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openAnalyticsDB()
		if err != nil {
			return err
		}
		defer d.Close()

		summary, err := analytics.Runs(d)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "runs: %d total, %d succeeded, %d failed\n",
			summary.TotalRuns, summary.SucceededRuns, summary.FailedRuns)

		rows, err := d.RecentRuns(analyticsRunsLimit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			status := "running"
			if r.Success.Valid {
				if r.Success.Bool {
					status = "success"
				} else {
					status = "failure"
				}
			}
			fmt.Fprintf(out, "%s  %-7s  %s  %s\n", r.RunID, status, r.StartedAt, r.TracePath)
		}
		return nil
	},
}

func openAnalyticsDB() (*db.DB, error) {
	path, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func init() {
	analyticsRunsCmd.Flags().IntVar(&analyticsRunsLimit, "limit", 10, "number of recent runs to list")
	analyticsCmd.AddCommand(analyticsStagesCmd)
	analyticsCmd.AddCommand(analyticsRunsCmd)
}
