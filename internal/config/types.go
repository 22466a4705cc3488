// Package config loads the YAML run configuration. Flags override
// config values; config values override environment defaults.
package config

// Config is the top-level tracefix configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Paths    PathsConfig    `yaml:"paths"`
	Limits   LimitsConfig   `yaml:"limits"`
}

// ProviderConfig selects and tunes the LLM backend.
type ProviderConfig struct {
	// Name is gemini, groq, or auto (default).
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
	// StageModels overrides the model for individual stages
	// (keys: rca, fix, patch).
	StageModels map[string]string `yaml:"stage_models"`
}

// PathsConfig holds the default run inputs.
type PathsConfig struct {
	Codebase string `yaml:"codebase"`
	Trace    string `yaml:"trace"`
	Output   string `yaml:"output"`
}

// LimitsConfig bounds tool and agent behavior.
type LimitsConfig struct {
	MaxFileBytes      int64    `yaml:"max_file_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	MaxIterations     int      `yaml:"max_iterations"`
	CommandTimeout    string   `yaml:"command_timeout"`
}
