package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const maxStacktraceChars = 2000

// ParseTrace turns an APM error-trace JSON file into a readable
// diagnosis summary: error identity, internal application frames with
// their function bodies, the primary location, and the raw stacktrace.
type ParseTrace struct {
	cfg Config
}

// NewParseTrace builds the parse_error_trace tool.
func NewParseTrace(cfg Config) *ParseTrace {
	return &ParseTrace{cfg: cfg.withDefaults()}
}

func (t *ParseTrace) Name() string { return "parse_error_trace" }

func (t *ParseTrace) Description() string {
	return "Parse a JSON error trace file and extract error type, message, internal code frames with function bodies, and the primary error location. Use this first when diagnosing."
}

func (t *ParseTrace) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"trace_path": map[string]interface{}{"type": "string", "description": "Path to the JSON error trace file"},
		},
		"required": []string{"trace_path"},
	}
}

// frame is one entry of the trace's stack_details payload. Keys are
// flat "exception.*" attributes; is_file_external arrives as the
// string "false"/"true" from some agents and as a bool from others.
type frame map[string]interface{}

func (f frame) str(key, fallback string) string {
	v, ok := f[key]
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", t), ".0")
	default:
		return fallback
	}
}

func (f frame) isInternal() bool {
	switch v := f["exception.is_file_external"].(type) {
	case string:
		return v == "false"
	case bool:
		return !v
	}
	return false
}

func (t *ParseTrace) Call(args map[string]interface{}) string {
	path := argString(args, "trace_path")
	if path == "" || !exists(path) {
		// Fall back to the configured trace when the model guesses a
		// relative path that does not exist.
		if t.cfg.TracePath != "" && exists(t.cfg.TracePath) {
			path = t.cfg.TracePath
		} else {
			return fmt.Sprintf("Error: Trace file not found at %s", path)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Error: Trace file not found at %s", path)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Sprintf("Error: Invalid JSON in trace file: %v", err)
	}

	var trace map[string]interface{}
	switch d := doc.(type) {
	case []interface{}:
		if len(d) == 0 {
			return "Error: Trace file contains empty array"
		}
		trace, _ = d[0].(map[string]interface{})
	case map[string]interface{}:
		trace = d
	}
	if trace == nil {
		return "Error: Trace file has unexpected shape"
	}

	attrs, _ := trace["event_attributes"].(map[string]interface{})
	get := func(key, fallback string) string {
		if v, ok := attrs[key].(string); ok {
			return v
		}
		return fallback
	}

	errorType := get("exception.type", "Unknown")
	errorMessage := get("exception.message", "No message")
	language := get("exception.language", "unknown")
	stacktrace := get("exception.stacktrace", "")

	allFrames := extractFrames(get("exception.stack_details", "[]"))
	var internal []frame
	for _, f := range allFrames {
		if f.isInternal() {
			internal = append(internal, f)
		}
	}

	eventName := "unknown"
	if v, ok := trace["event_name"].(string); ok {
		eventName = v
	}

	rule := strings.Repeat("=", 60)
	sep := strings.Repeat("-", 40)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nERROR TRACE ANALYSIS\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Error Type: %s\nError Message: %s\nLanguage: %s\nEvent: %s\n\n", errorType, errorMessage, language, eventName)
	fmt.Fprintf(&b, "%s\nINTERNAL APPLICATION FRAMES (Your Code):\n%s\n", sep, sep)

	if len(internal) == 0 {
		b.WriteString("No internal frames found (error may be in library code)\n")
	}
	for i, f := range internal {
		fmt.Fprintf(&b, "\n--- Frame %d ---\n", i+1)
		fmt.Fprintf(&b, "File: %s\nLine: %s\nFunction: %s\nCode:\n%s\n",
			f.str("exception.file", "unknown"),
			f.str("exception.line", "?"),
			f.str("exception.function_name", "unknown"),
			f.str("exception.function_body", ""))
	}

	if len(internal) > 0 {
		primary := internal[0]
		fmt.Fprintf(&b, "\n%s\nPRIMARY ERROR LOCATION:\n%s\n", sep, sep)
		fmt.Fprintf(&b, "File: %s\nLine: %s\nFunction: %s\n",
			primary.str("exception.file", "unknown"),
			primary.str("exception.line", "unknown"),
			primary.str("exception.function_name", "unknown"))
	}

	shown := stacktrace
	if len(shown) > maxStacktraceChars {
		shown = shown[:maxStacktraceChars] + "... [truncated]"
	}
	fmt.Fprintf(&b, "\n%s\nFULL STACKTRACE:\n%s\n%s\n", sep, sep, shown)

	fmt.Fprintf(&b, "\n%s\nSUMMARY FOR RCA:\n%s\n", rule, rule)
	fmt.Fprintf(&b, "- Error: %s: %s\n", errorType, errorMessage)
	fmt.Fprintf(&b, "- Total stack frames: %d\n", len(allFrames))
	fmt.Fprintf(&b, "- Internal (app) frames: %d", len(internal))
	if len(internal) > 0 {
		primary := internal[0]
		fmt.Fprintf(&b, "\n- Primary location: %s:%s",
			primary.str("exception.file", "unknown"),
			primary.str("exception.line", "?"))
	}
	return b.String()
}

// extractFrames decodes the stack_details attribute, which is itself a
// JSON string embedded in the trace document.
func extractFrames(stackDetails string) []frame {
	var raw []map[string]interface{}
	if err := json.Unmarshal([]byte(stackDetails), &raw); err != nil {
		return nil
	}
	frames := make([]frame, 0, len(raw))
	for _, m := range raw {
		frames = append(frames, frame(m))
	}
	return frames
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
