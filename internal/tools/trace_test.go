package tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTrace(t *testing.T, dir string, doc interface{}) string {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "trace.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleTrace() map[string]interface{} {
	frames := []map[string]interface{}{
		{
			"exception.file":             "/usr/srv/app/services/user.py",
			"exception.line":             "42",
			"exception.function_name":    "get_user",
			"exception.function_body":    "def get_user(payload):\n    return payload['user_id']",
			"exception.is_file_external": "false",
		},
		{
			"exception.file":             "/usr/lib/python3/dist-packages/fastapi/routing.py",
			"exception.line":             "273",
			"exception.function_name":    "run_endpoint",
			"exception.is_file_external": "true",
		},
	}
	stackDetails, _ := json.Marshal(frames)
	return map[string]interface{}{
		"event_name": "exception",
		"event_attributes": map[string]interface{}{
			"exception.type":          "KeyError",
			"exception.message":       "'user_id'",
			"exception.language":      "python",
			"exception.stacktrace":    "Traceback (most recent call last): ...",
			"exception.stack_details": string(stackDetails),
		},
	}
}

func TestParseTraceSummary(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, sampleTrace())

	pt := NewParseTrace(Config{})
	out := pt.Call(map[string]interface{}{"trace_path": path})

	for _, want := range []string{
		"Error Type: KeyError",
		"Error Message: 'user_id'",
		"Language: python",
		"--- Frame 1 ---",
		"PRIMARY ERROR LOCATION:",
		"File: /usr/srv/app/services/user.py",
		"Line: 42",
		"- Internal (app) frames: 1",
		"- Primary location: /usr/srv/app/services/user.py:42",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "run_endpoint") {
		t.Errorf("external frame leaked into internal section:\n%s", out)
	}
}

func TestParseTraceArrayDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, []interface{}{sampleTrace()})

	pt := NewParseTrace(Config{})
	out := pt.Call(map[string]interface{}{"trace_path": path})

	if !strings.Contains(out, "Error Type: KeyError") {
		t.Errorf("array trace not unwrapped:\n%s", out)
	}
}

func TestParseTraceMissingAttributes(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, map[string]interface{}{"event_name": "exception"})

	pt := NewParseTrace(Config{})
	out := pt.Call(map[string]interface{}{"trace_path": path})

	if !strings.Contains(out, "Error Type: Unknown") || !strings.Contains(out, "Error Message: No message") {
		t.Errorf("missing attributes not defaulted:\n%s", out)
	}
	if !strings.Contains(out, "No internal frames found") {
		t.Errorf("expected empty-frames note:\n%s", out)
	}
}

func TestParseTraceInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	pt := NewParseTrace(Config{})
	out := pt.Call(map[string]interface{}{"trace_path": path})

	if !strings.HasPrefix(out, "Error: Invalid JSON") {
		t.Errorf("got: %s", out)
	}
}

func TestParseTraceFallsBackToConfiguredPath(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, sampleTrace())

	pt := NewParseTrace(Config{TracePath: path})
	out := pt.Call(map[string]interface{}{"trace_path": "guessed/wrong.json"})

	if !strings.Contains(out, "Error Type: KeyError") {
		t.Errorf("fallback to configured trace failed:\n%s", out)
	}
}

func TestParseTraceEmptyArray(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, []interface{}{})

	pt := NewParseTrace(Config{})
	out := pt.Call(map[string]interface{}{"trace_path": path})

	if out != "Error: Trace file contains empty array" {
		t.Errorf("got: %s", out)
	}
}
