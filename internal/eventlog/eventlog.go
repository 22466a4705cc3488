// Package eventlog records everything the pipeline's agents do as an
// append-only, in-memory event stream that is persisted once at the end
// of a run. Large payloads are truncated with an explicit flag so the
// log stays readable without silently losing the fact of truncation.
package eventlog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/tracefix/internal/jsonio"
)

// Event types.
const (
	TypeAgentStart   = "agent_start"
	TypeAgentEnd     = "agent_end"
	TypeToolCall     = "tool_call"
	TypeToolResult   = "tool_result"
	TypeLLMRequest   = "llm_request"
	TypeLLMResponse  = "llm_response"
	TypeMemoryUpdate = "memory_update"
	TypeError        = "error"
	TypeSystem       = "system"
)

// Truncation caps per payload kind.
const (
	maxToolResult  = 2000
	maxLLMText     = 1000
	maxAgentOutput = 500
)

// Event is one entry in the session log.
type Event struct {
	ID        int                    `json:"event_id"`
	Timestamp string                 `json:"timestamp"`
	Agent     string                 `json:"agent_name"`
	Type      string                 `json:"event_type"`
	Iteration int                    `json:"iteration"`
	Data      map[string]interface{} `json:"data"`
}

// Log is the persisted document shape.
type Log struct {
	SessionID      string   `json:"session_id"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	TotalEvents    int      `json:"total_events"`
	AgentsInvolved []string `json:"agents_involved"`
	Events         []Event  `json:"events"`
}

// Logger collects events for one pipeline session.
type Logger struct {
	mu         sync.Mutex
	sessionID  string
	startTime  string
	nextID     int
	iterations map[string]int
	events     []Event
}

// New creates a logger with a fresh 8-character session id.
func New() *Logger {
	return NewWithSession(uuid.NewString()[:8])
}

// NewWithSession creates a logger with a caller-chosen session id.
func NewWithSession(id string) *Logger {
	return &Logger{
		sessionID:  id,
		startTime:  nowUTC(),
		nextID:     1,
		iterations: make(map[string]int),
	}
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SessionID returns the session identifier.
func (l *Logger) SessionID() string { return l.sessionID }

func (l *Logger) append(agent, typ string, data map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appendLocked(agent, typ, data)
}

func (l *Logger) appendLocked(agent, typ string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	l.events = append(l.events, Event{
		ID:        l.nextID,
		Timestamp: nowUTC(),
		Agent:     agent,
		Type:      typ,
		Iteration: l.iterations[agent],
		Data:      data,
	})
	l.nextID++
}

// truncate caps s at n runes of bytes and reports whether it did.
func truncate(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	return s[:n] + "... [truncated]", true
}

// AgentStart records the beginning of an agent invocation. It bumps the
// agent's iteration counter so later events attribute to this pass.
func (l *Logger) AgentStart(agent, task string, contextKeys []string, toolNames []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.iterations[agent]++
	l.appendLocked(agent, TypeAgentStart, map[string]interface{}{
		"task":         task,
		"context_keys": contextKeys,
		"tools":        toolNames,
	})
}

// AgentEnd records the end of an agent invocation with its (truncated)
// final output.
func (l *Logger) AgentEnd(agent, output string, success bool, durationMs int64) {
	out, cut := truncate(output, maxAgentOutput)
	l.append(agent, TypeAgentEnd, map[string]interface{}{
		"output":           out,
		"output_truncated": cut,
		"success":          success,
		"duration_ms":      durationMs,
	})
}

// ToolCall records a tool invocation and its result as two events, with
// the result capped at the tool-result limit.
func (l *Logger) ToolCall(agent, tool string, args map[string]interface{}, result string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appendLocked(agent, TypeToolCall, map[string]interface{}{
		"tool": tool,
		"args": args,
	})
	res, cut := truncate(result, maxToolResult)
	l.appendLocked(agent, TypeToolResult, map[string]interface{}{
		"tool":             tool,
		"result":           res,
		"result_truncated": cut,
	})
}

// LLMRequest records an outbound model call.
func (l *Logger) LLMRequest(agent, model string, messageCount int, toolNames []string) {
	l.append(agent, TypeLLMRequest, map[string]interface{}{
		"model":         model,
		"message_count": messageCount,
		"tools":         toolNames,
	})
}

// LLMResponse records the model's reply text (truncated) and how many
// tool calls it requested.
func (l *Logger) LLMResponse(agent, text string, toolCalls int) {
	out, cut := truncate(text, maxLLMText)
	l.append(agent, TypeLLMResponse, map[string]interface{}{
		"text":           out,
		"text_truncated": cut,
		"tool_calls":     toolCalls,
	})
}

// MemoryUpdate records a write to the shared state store.
func (l *Logger) MemoryUpdate(agent, section string, keys []string) {
	l.append(agent, TypeMemoryUpdate, map[string]interface{}{
		"section": section,
		"keys":    keys,
	})
}

// Error records a failure attributed to an agent.
func (l *Logger) Error(agent, errType, message string, details map[string]interface{}) {
	data := map[string]interface{}{
		"error_type": errType,
		"message":    message,
	}
	for k, v := range details {
		data[k] = v
	}
	l.append(agent, TypeError, data)
}

// System records a pipeline-level event not tied to any agent.
func (l *Logger) System(message string, data map[string]interface{}) {
	payload := map[string]interface{}{"message": message}
	for k, v := range data {
		payload[k] = v
	}
	l.append("system", TypeSystem, payload)
}

// Events returns a copy of the event stream.
func (l *Logger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Snapshot assembles the persisted document.
func (l *Logger) Snapshot() Log {
	l.mu.Lock()
	defer l.mu.Unlock()

	agents := make([]string, 0, len(l.iterations))
	for a := range l.iterations {
		agents = append(agents, a)
	}
	sort.Strings(agents)

	events := make([]Event, len(l.events))
	copy(events, l.events)

	return Log{
		SessionID:      l.sessionID,
		StartTime:      l.startTime,
		EndTime:        nowUTC(),
		TotalEvents:    len(events),
		AgentsInvolved: agents,
		Events:         events,
	}
}

// Save writes the full session document to path.
func (l *Logger) Save(path string) error {
	if err := jsonio.WriteJSON(path, l.Snapshot()); err != nil {
		return fmt.Errorf("save event log: %w", err)
	}
	return nil
}
