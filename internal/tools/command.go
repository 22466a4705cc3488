package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// RunCommand runs a shell command in the workspace with a timeout.
// Like every tool, failures (including timeouts and non-zero exits)
// come back as readable strings.
type RunCommand struct {
	cfg Config
}

// NewRunCommand builds the run_command tool.
func NewRunCommand(cfg Config) *RunCommand {
	return &RunCommand{cfg: cfg.withDefaults()}
}

func (t *RunCommand) Name() string { return "run_command" }

func (t *RunCommand) Description() string {
	return "Run a shell command in the project workspace and return its combined output. Use this to verify a patched file, e.g. by syntax-checking it."
}

func (t *RunCommand) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{"type": "string", "description": "The shell command to run"},
		},
		"required": []string{"command"},
	}
}

func (t *RunCommand) Call(args map[string]interface{}) string {
	command := argString(args, "command")
	if strings.TrimSpace(command) == "" {
		return "Error: command cannot be empty"
	}

	if t.cfg.Workspace != "" {
		if err := os.MkdirAll(t.cfg.Workspace, 0o755); err != nil {
			return fmt.Sprintf("Error running command: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.CommandTimeout)
	defer cancel()

	stdout, stderr, exitCode, err := t.cfg.Runner.Run(ctx, t.cfg.Workspace, command)
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("Error: command timed out after %s", t.cfg.CommandTimeout)
	}
	if err != nil {
		return fmt.Sprintf("Error running command: %v", err)
	}
	if exitCode != 0 {
		return fmt.Sprintf("Command exited with code %d.\nSTDOUT:\n%s\nSTDERR:\n%s", exitCode, stdout, stderr)
	}
	if stdout == "" {
		return "(no output)"
	}
	return stdout
}
