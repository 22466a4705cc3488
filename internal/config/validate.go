package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError describes one invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	switch c.Provider.Name {
	case "", "auto", "gemini", "groq":
	default:
		errs = append(errs, ValidationError{
			Field:   "provider.name",
			Message: fmt.Sprintf("unknown provider %q (want gemini, groq, or auto)", c.Provider.Name),
		})
	}

	for stage := range c.Provider.StageModels {
		switch stage {
		case "rca", "fix", "patch":
		default:
			errs = append(errs, ValidationError{
				Field:   "provider.stage_models",
				Message: fmt.Sprintf("unknown stage %q (want rca, fix, or patch)", stage),
			})
		}
	}

	if c.Limits.MaxFileBytes < 0 {
		errs = append(errs, ValidationError{Field: "limits.max_file_bytes", Message: "must not be negative"})
	}
	if c.Limits.MaxIterations < 0 {
		errs = append(errs, ValidationError{Field: "limits.max_iterations", Message: "must not be negative"})
	}

	for _, ext := range c.Limits.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, ValidationError{
				Field:   "limits.allowed_extensions",
				Message: fmt.Sprintf("extension %q must start with a dot", ext),
			})
		}
	}

	if c.Limits.CommandTimeout != "" {
		if d, err := time.ParseDuration(c.Limits.CommandTimeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   "limits.command_timeout",
				Message: fmt.Sprintf("invalid duration %q", c.Limits.CommandTimeout),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{Field: "limits.command_timeout", Message: "must be positive"})
		}
	}

	return errs
}

// CommandTimeout parses the configured timeout; call after Validate.
func (c *Config) CommandTimeout() time.Duration {
	d, err := time.ParseDuration(c.Limits.CommandTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
