package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderSubstitutesVariables(t *testing.T) {
	out, err := Render("trace at {{trace_path}} for {{agent}}", Vars{
		"trace_path": "/tmp/trace.json",
		"agent":      "rca",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "trace at /tmp/trace.json for rca" {
		t.Errorf("out = %q", out)
	}
}

func TestRenderMissingVariableErrors(t *testing.T) {
	_, err := Render("hello {{name}}", Vars{})
	if err == nil || !strings.Contains(err.Error(), "name") {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderConditionalBlocks(t *testing.T) {
	tmpl := "start{{#if extra}} extra={{extra}}{{/if}} end"

	out, err := Render(tmpl, Vars{"extra": "42"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "start extra=42 end" {
		t.Errorf("out = %q", out)
	}

	out, err = Render(tmpl, Vars{"extra": ""})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "start end" {
		t.Errorf("out = %q", out)
	}
}

func TestRenderUnclosedConditional(t *testing.T) {
	if _, err := Render("{{#if x}}body", Vars{"x": "1"}); err == nil {
		t.Fatal("expected error for unclosed conditional")
	}
}

func TestLoadBuiltins(t *testing.T) {
	for _, name := range []string{"rca.md", "fix.md", "patch.md"} {
		tmpl, err := Load(name, "")
		if err != nil {
			t.Errorf("Load(%s): %v", name, err)
			continue
		}
		if tmpl == "" {
			t.Errorf("Load(%s) returned empty template", name)
		}
	}
	if _, err := Load("nope.md", ""); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestLoadProjectOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "prompts"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "prompts", "rca.md"), []byte("custom {{trace_path}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	tmpl, err := Load("rca.md", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tmpl != "custom {{trace_path}}" {
		t.Errorf("override not used: %q", tmpl)
	}
}

func TestBuiltinTemplatesRender(t *testing.T) {
	vars := Vars{
		"trace_path":    "/tmp/t.json",
		"rca_context":   "{}",
		"fix_context":   "{}",
		"affected_file": "app.py",
		"affected_line": "42",
		"patched_name":  "fixed_app.py",
	}
	for name, tmpl := range builtinTemplates {
		if _, err := Render(tmpl, vars); err != nil {
			t.Errorf("render %s: %v", name, err)
		}
	}
}
