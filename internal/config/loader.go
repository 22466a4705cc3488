package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration from the given YAML file path,
// then applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches standard locations and loads the first config
// found, or returns a default config when none exists. Search order:
// ./tracefix.yaml, ~/.tracefix/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"tracefix.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".tracefix", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Limits.MaxFileBytes == 0 {
		cfg.Limits.MaxFileBytes = 1_000_000
	}
	if len(cfg.Limits.AllowedExtensions) == 0 {
		cfg.Limits.AllowedExtensions = []string{
			".py", ".txt", ".json", ".md", ".html", ".yml", ".yaml", ".ini", ".cfg", ".toml",
		}
	}
	if cfg.Limits.MaxIterations == 0 {
		cfg.Limits.MaxIterations = 12
	}
	if cfg.Limits.CommandTimeout == "" {
		cfg.Limits.CommandTimeout = "30s"
	}
	if cfg.Paths.Output == "" {
		cfg.Paths.Output = "outputs"
	}
}
