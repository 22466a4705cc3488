// Package llm defines the provider-neutral chat types and the Provider
// interface the agent executor drives. Concrete clients speak the
// Gemini and Groq (OpenAI-compatible) HTTP APIs directly.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn in a conversation.
type Message struct {
	Role    string
	Content string

	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []ToolCall

	// ToolCallID and ToolName identify which call a tool message answers.
	ToolCallID string
	ToolName   string
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]interface{}
}

// ToolDef describes a tool offered to the model. Parameters is a JSON
// schema object.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Response is the model's reply to one Chat call.
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
}

// Provider is a chat-completion backend.
type Provider interface {
	// Name identifies the backend ("gemini", "groq").
	Name() string
	// Model returns the model identifier in use.
	Model() string
	// Chat sends the conversation and returns the model's next turn.
	Chat(ctx context.Context, messages []Message, tools []ToolDef) (*Response, error)
}
