package llm

import (
	"fmt"
	"os"
)

// Environment variables consulted by FromEnv.
const (
	EnvProvider    = "LLM_PROVIDER"
	EnvGroqKey     = "GROQ_API_KEY"
	EnvGroqModel   = "GROQ_MODEL"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvGoogleKey   = "GOOGLE_API_KEY"
	EnvGeminiModel = "GEMINI_MODEL"
)

// FromEnv builds a provider from environment variables. LLM_PROVIDER
// selects "gemini", "groq", or "auto" (the default); auto prefers Groq
// when GROQ_API_KEY is set and falls back to Gemini. Explicit name and
// model arguments (from flags or config) override the environment.
func FromEnv(name, model string) (Provider, error) {
	if name == "" {
		name = os.Getenv(EnvProvider)
	}
	if name == "" {
		name = "auto"
	}

	switch name {
	case "groq":
		key := os.Getenv(EnvGroqKey)
		if key == "" {
			return nil, fmt.Errorf("provider groq selected but GROQ_API_KEY is not set")
		}
		return NewGroq(key, pick(model, os.Getenv(EnvGroqModel))), nil
	case "gemini":
		key := geminiKey()
		if key == "" {
			return nil, fmt.Errorf("provider gemini selected but neither GEMINI_API_KEY nor GOOGLE_API_KEY is set")
		}
		return NewGemini(key, pick(model, os.Getenv(EnvGeminiModel))), nil
	case "auto":
		if key := os.Getenv(EnvGroqKey); key != "" {
			return NewGroq(key, pick(model, os.Getenv(EnvGroqModel))), nil
		}
		if key := geminiKey(); key != "" {
			return NewGemini(key, pick(model, os.Getenv(EnvGeminiModel))), nil
		}
		return nil, fmt.Errorf("no LLM credentials found: set GROQ_API_KEY or GEMINI_API_KEY/GOOGLE_API_KEY")
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (want gemini, groq, or auto)", name)
	}
}

func geminiKey() string {
	if key := os.Getenv(EnvGeminiKey); key != "" {
		return key
	}
	return os.Getenv(EnvGoogleKey)
}

func pick(explicit, env string) string {
	if explicit != "" {
		return explicit
	}
	return env
}
