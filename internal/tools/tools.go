// Package tools implements the agent-facing toolset. Every tool takes a
// loosely-typed argument map (the shape tool calls arrive in from any
// provider) and returns a plain string; failures come back as
// "Error: ..." strings so the model can read and react to them instead
// of the pipeline aborting.
package tools

import (
	"sort"
	"time"
)

// Tool is one callable capability offered to an agent.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the tool's JSON-schema parameter object.
	Parameters() map[string]interface{}
	Call(args map[string]interface{}) string
}

// Config carries the paths and limits the tools operate under.
type Config struct {
	CodebasePath string
	OutputDir    string
	Workspace    string
	TracePath    string

	MaxFileBytes      int64
	AllowedExtensions []string
	CommandTimeout    time.Duration

	// Runner overrides command execution; nil means a real shell.
	Runner CommandRunner
}

const (
	defaultMaxFileBytes   = 1_000_000
	defaultCommandTimeout = 30 * time.Second
	maxDisplayLines       = 800
	containerPrefix       = "/usr/srv/app/"
)

var defaultExtensions = []string{
	".py", ".txt", ".json", ".md", ".html", ".yml", ".yaml", ".ini", ".cfg", ".toml",
}

func (c Config) withDefaults() Config {
	if c.MaxFileBytes == 0 {
		c.MaxFileBytes = defaultMaxFileBytes
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = defaultExtensions
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
	if c.Runner == nil {
		c.Runner = &ExecRunner{}
	}
	return c
}

// Names returns the tool names in a stable order, for event logging.
func Names(ts []Tool) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Name())
	}
	sort.Strings(out)
	return out
}

// ByName finds a tool in a set, or nil.
func ByName(ts []Tool, name string) Tool {
	for _, t := range ts {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// argString reads a string argument, tolerating absence.
func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// argInt reads an integer argument; providers deliver JSON numbers as
// float64.
func argInt(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
