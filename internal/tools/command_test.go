package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

type fakeRunner struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
	gotDir   string
	gotCmd   string
	sleep    time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, dir, command string) (string, string, int, error) {
	f.gotDir = dir
	f.gotCmd = command
	if f.sleep > 0 {
		select {
		case <-time.After(f.sleep):
		case <-ctx.Done():
		}
	}
	return f.stdout, f.stderr, f.exitCode, f.err
}

func TestRunCommandSuccess(t *testing.T) {
	fr := &fakeRunner{stdout: "ok\n"}
	rc := NewRunCommand(Config{Workspace: t.TempDir(), Runner: fr})

	out := rc.Call(map[string]interface{}{"command": "echo ok"})
	if out != "ok\n" {
		t.Errorf("out = %q", out)
	}
	if fr.gotCmd != "echo ok" {
		t.Errorf("command = %q", fr.gotCmd)
	}
}

func TestRunCommandNonZeroExit(t *testing.T) {
	fr := &fakeRunner{stdout: "partial", stderr: "boom", exitCode: 2}
	rc := NewRunCommand(Config{Workspace: t.TempDir(), Runner: fr})

	out := rc.Call(map[string]interface{}{"command": "false"})
	if !strings.Contains(out, "Command exited with code 2") ||
		!strings.Contains(out, "STDOUT:\npartial") ||
		!strings.Contains(out, "STDERR:\nboom") {
		t.Errorf("out = %q", out)
	}
}

func TestRunCommandEmpty(t *testing.T) {
	rc := NewRunCommand(Config{Workspace: t.TempDir(), Runner: &fakeRunner{}})
	if out := rc.Call(map[string]interface{}{"command": "  "}); !strings.Contains(out, "command cannot be empty") {
		t.Errorf("out = %q", out)
	}
}

func TestRunCommandNoOutput(t *testing.T) {
	rc := NewRunCommand(Config{Workspace: t.TempDir(), Runner: &fakeRunner{}})
	if out := rc.Call(map[string]interface{}{"command": "true"}); out != "(no output)" {
		t.Errorf("out = %q", out)
	}
}

func TestRunCommandTimeout(t *testing.T) {
	fr := &fakeRunner{sleep: 50 * time.Millisecond}
	rc := NewRunCommand(Config{Workspace: t.TempDir(), Runner: fr, CommandTimeout: 10 * time.Millisecond})

	out := rc.Call(map[string]interface{}{"command": "sleep 5"})
	if !strings.Contains(out, "timed out after") {
		t.Errorf("out = %q", out)
	}
}

func TestExecRunnerRealCommand(t *testing.T) {
	r := &ExecRunner{}
	stdout, _, code, err := r.Run(context.Background(), t.TempDir(), "echo hello")
	if err != nil || code != 0 {
		t.Fatalf("err=%v code=%d", err, code)
	}
	if strings.TrimSpace(stdout) != "hello" {
		t.Errorf("stdout = %q", stdout)
	}
}
