package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracefix.yaml")
	doc := `
provider:
  name: groq
paths:
  codebase: ./fastapi-project
  trace: ./trace_1.json
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Name != "groq" {
		t.Errorf("provider = %q", cfg.Provider.Name)
	}
	if cfg.Limits.MaxFileBytes != 1_000_000 {
		t.Errorf("max_file_bytes default = %d", cfg.Limits.MaxFileBytes)
	}
	if cfg.Limits.MaxIterations != 12 {
		t.Errorf("max_iterations default = %d", cfg.Limits.MaxIterations)
	}
	if cfg.Paths.Output != "outputs" {
		t.Errorf("output default = %q", cfg.Paths.Output)
	}
	if cfg.CommandTimeout() != 30*time.Second {
		t.Errorf("command timeout = %s", cfg.CommandTimeout())
	}
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("provider: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateCatchesProblems(t *testing.T) {
	cfg := &Config{
		Provider: ProviderConfig{
			Name:        "mystery",
			StageModels: map[string]string{"deploy": "some-model"},
		},
		Limits: LimitsConfig{
			MaxFileBytes:      -1,
			AllowedExtensions: []string{"py"},
			CommandTimeout:    "soon",
		},
	}

	errs := cfg.Validate()
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"provider.name", "provider.stage_models", "limits.max_file_bytes", "limits.allowed_extensions", "limits.command_timeout"} {
		if !fields[want] {
			t.Errorf("missing validation error for %s (got %v)", want, errs)
		}
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config invalid: %v", errs)
	}
}
