package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/tracefix/internal/eventlog"
	"github.com/lucasnoah/tracefix/internal/jsonio"
	"github.com/lucasnoah/tracefix/internal/orchestrator"
)

var (
	eventsDir   string
	eventsAgent string
	eventsTail  int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the message history from a previous run",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(eventsDir, orchestrator.HistoryFile)
		var log eventlog.Log
		if err := jsonio.ReadJSON(path, &log); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}

		events := log.Events
		if eventsAgent != "" {
			filtered := events[:0:0]
			for _, e := range events {
				if e.Agent == eventsAgent {
					filtered = append(filtered, e)
				}
			}
			events = filtered
		}
		if eventsTail > 0 && len(events) > eventsTail {
			events = events[len(events)-eventsTail:]
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "session %s  %s .. %s  (%d events", log.SessionID, log.StartTime, log.EndTime, log.TotalEvents)
		if len(events) != log.TotalEvents {
			fmt.Fprintf(out, ", showing %d", len(events))
		}
		fmt.Fprintln(out, ")")

		for _, e := range events {
			fmt.Fprintf(out, "%4d  %s  %-12s %-16s", e.ID, e.Timestamp, e.Agent, e.Type)
			if e.Iteration > 0 {
				fmt.Fprintf(out, " iter=%d", e.Iteration)
			}
			if s := eventSummary(e); s != "" {
				fmt.Fprintf(out, "  %s", s)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

// eventSummary picks the most useful data field for a one-line view.
func eventSummary(e eventlog.Event) string {
	str := func(key string) string {
		s, _ := e.Data[key].(string)
		return s
	}
	switch e.Type {
	case eventlog.TypeAgentStart:
		return str("task")
	case eventlog.TypeAgentEnd:
		return fmt.Sprintf("success=%v", e.Data["success"])
	case eventlog.TypeToolCall:
		return str("tool")
	case eventlog.TypeToolResult:
		return fmt.Sprintf("%s (%d chars)", str("tool"), len(str("result")))
	case eventlog.TypeLLMResponse:
		return fmt.Sprintf("tool_calls=%v", e.Data["tool_calls"])
	case eventlog.TypeMemoryUpdate:
		return str("section")
	case eventlog.TypeError:
		return fmt.Sprintf("%s: %s", str("error_type"), str("message"))
	case eventlog.TypeSystem:
		return str("message")
	}
	return ""
}

func init() {
	eventsCmd.Flags().StringVar(&eventsDir, "output", "outputs", "run output directory to inspect")
	eventsCmd.Flags().StringVar(&eventsAgent, "agent", "", "only show events from this agent")
	eventsCmd.Flags().IntVar(&eventsTail, "tail", 0, "only show the last N events")
}
