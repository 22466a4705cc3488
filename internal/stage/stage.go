// Package stage runs one pipeline stage: build the task prompt from
// shared memory, drive the agent executor, recover the structured
// record from the reply, and store it.
package stage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lucasnoah/tracefix/internal/agent"
	"github.com/lucasnoah/tracefix/internal/eventlog"
	"github.com/lucasnoah/tracefix/internal/memory"
	"github.com/lucasnoah/tracefix/internal/prompt"
	"github.com/lucasnoah/tracefix/internal/tools"
)

// Status is a stage's lifecycle state.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusSucceeded  Status = "succeeded"
	StatusDegraded   Status = "degraded"
	StatusFailed     Status = "failed"
)

// RunContext carries the per-run paths every stage can draw on.
type RunContext struct {
	TracePath    string
	CodebasePath string
	OutputDir    string
}

// RecoverFunc extracts the stage's record from the model output and
// stores it in shared memory. It reports the memory section written,
// the record's field keys, and the extraction strategy used. A non-nil
// error means no record was recovered; the stage degrades.
type RecoverFunc func(m *memory.Memory, output string) (section string, keys []string, strategy string, err error)

// Definition describes one stage of the pipeline.
type Definition struct {
	ID           string
	Agent        string
	TaskName     string
	SystemPrompt string
	Template     string
	Tools        func(cfg tools.Config) []tools.Tool
	Vars         func(m *memory.Memory, rc RunContext) prompt.Vars
	Recover      RecoverFunc
}

// Result is the outcome of one stage run.
type Result struct {
	Stage      string
	Status     Status
	Strategy   string
	Output     string
	DurationMs int64
}

// Runner executes stage definitions against shared collaborators.
type Runner struct {
	Memory     *memory.Memory
	Log        *eventlog.Logger
	Exec       *agent.Executor
	ToolConfig tools.Config
	Progress   io.Writer

	// ExecOverrides maps a stage id to a dedicated executor, used for
	// per-stage model overrides. Stages not listed use Exec.
	ExecOverrides map[string]*agent.Executor
}

func (r *Runner) execFor(stageID string) *agent.Executor {
	if e, ok := r.ExecOverrides[stageID]; ok {
		return e
	}
	return r.Exec
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.Progress != nil {
		fmt.Fprintf(r.Progress, format+"\n", args...)
	}
}

// Run executes one stage. A returned error means the executor (or the
// prompt build) failed and the pipeline should stop; a degraded
// extraction is not an error.
func (r *Runner) Run(ctx context.Context, def Definition, rc RunContext) (*Result, error) {
	res := &Result{Stage: def.ID, Status: StatusRunning}

	toolset := def.Tools(r.ToolConfig)
	view := r.Memory.ContextFor(def.Agent)
	contextKeys := make([]string, 0, len(view))
	for k, v := range view {
		if v != nil {
			contextKeys = append(contextKeys, k)
		}
	}

	r.Log.AgentStart(def.Agent, def.TaskName, contextKeys, tools.Names(toolset))
	r.logf("[%s] %s", def.ID, def.TaskName)

	tmpl, err := prompt.Load(def.Template, rc.CodebasePath)
	if err != nil {
		res.Status = StatusFailed
		return res, fmt.Errorf("stage %s: %w", def.ID, err)
	}
	task, err := prompt.Render(tmpl, def.Vars(r.Memory, rc))
	if err != nil {
		res.Status = StatusFailed
		return res, fmt.Errorf("stage %s: %w", def.ID, err)
	}

	start := time.Now()
	output, err := r.execFor(def.ID).Run(ctx, agent.Task{
		Agent:        def.Agent,
		SystemPrompt: def.SystemPrompt,
		Prompt:       task,
		Tools:        toolset,
	})
	res.DurationMs = time.Since(start).Milliseconds()
	res.Output = output

	if err != nil {
		r.Log.Error(def.Agent, "ExecutorError", err.Error(), nil)
		r.Log.AgentEnd(def.Agent, output, false, res.DurationMs)
		res.Status = StatusFailed
		return res, fmt.Errorf("stage %s: %w", def.ID, err)
	}

	section, keys, strategy, rerr := def.Recover(r.Memory, output)
	res.Strategy = strategy
	if rerr != nil {
		r.logf("[%s] no structured output recovered: %v", def.ID, rerr)
		r.Log.AgentEnd(def.Agent, output, false, res.DurationMs)
		res.Status = StatusDegraded
		return res, nil
	}

	r.Log.MemoryUpdate(def.Agent, section, keys)
	r.Log.AgentEnd(def.Agent, output, true, res.DurationMs)
	res.Status = StatusSucceeded
	return res, nil
}
