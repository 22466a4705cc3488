package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lucasnoah/tracefix/internal/eventlog"
	"github.com/lucasnoah/tracefix/internal/llm"
	"github.com/lucasnoah/tracefix/internal/tools"
)

// scriptedProvider replays canned responses in order.
type scriptedProvider struct {
	responses []*llm.Response
	errs      []error
	calls     int
	gotMsgs   [][]llm.Message
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.Message, defs []llm.ToolDef) (*llm.Response, error) {
	i := p.calls
	p.calls++
	p.gotMsgs = append(p.gotMsgs, messages)
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return p.responses[i], nil
}

type echoTool struct{ lastArgs map[string]interface{} }

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "echoes" }
func (t *echoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}
func (t *echoTool) Call(args map[string]interface{}) string {
	t.lastArgs = args
	return "echoed: " + args["text"].(string)
}

func TestRunToolRoundTrip(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "echo", Args: map[string]interface{}{"text": "hi"}}}},
		{Content: "final answer"},
	}}
	et := &echoTool{}
	log := eventlog.NewWithSession("t")
	ex := New(p, log, nil)

	out, err := ex.Run(context.Background(), Task{
		Agent:        "rca_agent",
		SystemPrompt: "sys",
		Prompt:       "go",
		Tools:        []tools.Tool{et},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "final answer" {
		t.Errorf("out = %q", out)
	}
	if et.lastArgs["text"] != "hi" {
		t.Errorf("tool args = %v", et.lastArgs)
	}

	// Second call must carry the tool result back to the model.
	second := p.gotMsgs[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleTool || last.Content != "echoed: hi" || last.ToolCallID != "c1" {
		t.Errorf("tool message = %+v", last)
	}

	// Event stream: request, response, tool_call, tool_result, request, response.
	types := []string{}
	for _, e := range log.Events() {
		types = append(types, e.Type)
	}
	want := []string{
		eventlog.TypeLLMRequest, eventlog.TypeLLMResponse,
		eventlog.TypeToolCall, eventlog.TypeToolResult,
		eventlog.TypeLLMRequest, eventlog.TypeLLMResponse,
	}
	if len(types) != len(want) {
		t.Fatalf("event types = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestRunUnknownToolFeedsErrorBack(t *testing.T) {
	p := &scriptedProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "vanish"}}},
		{Content: "done"},
	}}
	ex := New(p, eventlog.NewWithSession("t"), nil)

	out, err := ex.Run(context.Background(), Task{Agent: "a", Prompt: "go"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "done" {
		t.Errorf("out = %q", out)
	}

	second := p.gotMsgs[1]
	last := second[len(second)-1]
	if !strings.Contains(last.Content, `unknown tool "vanish"`) {
		t.Errorf("tool error not fed back: %q", last.Content)
	}
}

func TestRunProviderErrorPropagates(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("rate limited")}, responses: []*llm.Response{nil}}
	ex := New(p, eventlog.NewWithSession("t"), nil)

	_, err := ex.Run(context.Background(), Task{Agent: "a", Prompt: "go"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunIterationLimit(t *testing.T) {
	// A model that never stops calling tools.
	resp := &llm.Response{ToolCalls: []llm.ToolCall{{ID: "c", Name: "echo", Args: map[string]interface{}{"text": "x"}}}}
	p := &scriptedProvider{}
	for i := 0; i < 20; i++ {
		p.responses = append(p.responses, resp)
	}
	ex := New(p, eventlog.NewWithSession("t"), nil)
	ex.SetMaxIterations(3)

	_, err := ex.Run(context.Background(), Task{Agent: "a", Prompt: "go", Tools: []tools.Tool{&echoTool{}}})
	if err == nil || !strings.Contains(err.Error(), "exceeded 3 iterations") {
		t.Fatalf("err = %v", err)
	}
	if p.calls != 3 {
		t.Errorf("provider calls = %d, want 3", p.calls)
	}
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &scriptedProvider{responses: []*llm.Response{{Content: "x"}}}
	ex := New(p, eventlog.NewWithSession("t"), nil)

	if _, err := ex.Run(ctx, Task{Agent: "a", Prompt: "go"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
