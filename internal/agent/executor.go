// Package agent drives one agent invocation: system prompt plus task
// through an LLM provider, dispatching requested tool calls until the
// model produces a final text reply.
package agent

import (
	"context"
	"fmt"
	"io"

	"github.com/lucasnoah/tracefix/internal/eventlog"
	"github.com/lucasnoah/tracefix/internal/llm"
	"github.com/lucasnoah/tracefix/internal/tools"
)

// DefaultMaxIterations bounds the tool loop per agent invocation.
const DefaultMaxIterations = 12

// Task describes one agent invocation.
type Task struct {
	Agent        string
	SystemPrompt string
	Prompt       string
	Tools        []tools.Tool
}

// Executor runs tasks against a provider and records every exchange in
// the event log.
type Executor struct {
	provider      llm.Provider
	log           *eventlog.Logger
	maxIterations int
	progress      io.Writer
}

// New creates an executor. progress may be nil for silent operation.
func New(provider llm.Provider, log *eventlog.Logger, progress io.Writer) *Executor {
	return &Executor{
		provider:      provider,
		log:           log,
		maxIterations: DefaultMaxIterations,
		progress:      progress,
	}
}

// SetMaxIterations overrides the tool-loop bound.
func (e *Executor) SetMaxIterations(n int) {
	if n > 0 {
		e.maxIterations = n
	}
}

func (e *Executor) logf(format string, args ...interface{}) {
	if e.progress != nil {
		fmt.Fprintf(e.progress, format+"\n", args...)
	}
}

// Run executes the task and returns the model's final text. Provider
// errors propagate; tool failures do not, they are fed back to the
// model as result strings.
func (e *Executor) Run(ctx context.Context, t Task) (string, error) {
	defs := make([]llm.ToolDef, 0, len(t.Tools))
	for _, tool := range t.Tools {
		defs = append(defs, llm.ToolDef{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	toolNames := tools.Names(t.Tools)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: t.SystemPrompt},
		{Role: llm.RoleUser, Content: t.Prompt},
	}

	for i := 0; i < e.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		e.log.LLMRequest(t.Agent, e.provider.Model(), len(messages), toolNames)
		resp, err := e.provider.Chat(ctx, messages, defs)
		if err != nil {
			return "", fmt.Errorf("%s call: %w", e.provider.Name(), err)
		}
		e.log.LLMResponse(t.Agent, resp.Content, len(resp.ToolCalls))

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			result := e.dispatch(t.Tools, call)
			e.log.ToolCall(t.Agent, call.Name, call.Args, result)
			e.logf("  [%s] %s", t.Agent, call.Name)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	return "", fmt.Errorf("agent %s exceeded %d iterations without a final reply", t.Agent, e.maxIterations)
}

func (e *Executor) dispatch(ts []tools.Tool, call llm.ToolCall) string {
	tool := tools.ByName(ts, call.Name)
	if tool == nil {
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}
	args := call.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	return tool.Call(args)
}
