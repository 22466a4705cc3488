package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGroqChatToolCallRoundTrip(t *testing.T) {
	var gotReq oaiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := oaiResponse{Choices: []oaiChoice{{
			FinishReason: "tool_calls",
			Message: oaiMessage{
				Role: "assistant",
				ToolCalls: []oaiToolCall{{
					ID:   "call_1",
					Type: "function",
					Function: oaiFunctionCall{
						Name:      "read_file",
						Arguments: `{"file_path": "app.py"}`,
					},
				}},
			},
		}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewGroq("test-key", "test-model")
	c.endpoint = srv.URL

	resp, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "analyze"},
	}, []ToolDef{{Name: "read_file", Parameters: map[string]interface{}{"type": "object"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.Name != "read_file" || tc.Args["file_path"] != "app.py" {
		t.Errorf("tool call = %+v", tc)
	}

	if gotReq.Model != "test-model" || len(gotReq.Messages) != 2 || len(gotReq.Tools) != 1 {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestGroqChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(oaiResponse{Error: &oaiError{Message: "bad key", Type: "auth"}})
	}))
	defer srv.Close()

	c := NewGroq("bad", "m")
	c.endpoint = srv.URL

	if _, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, nil); err == nil {
		t.Fatal("expected API error")
	}
}

func TestGeminiChatFunctionCall(t *testing.T) {
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := geminiResponse{Candidates: []geminiCandidate{{
			FinishReason: "STOP",
			Content: geminiContent{Role: "model", Parts: []geminiPart{
				{Text: "looking at the trace"},
				{FunctionCall: &geminiFunctionCall{Name: "parse_error_trace", Args: map[string]interface{}{"trace_path": "t.json"}}},
			}},
		}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewGemini("k", "m")
	c.endpoint = srv.URL

	resp, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "go"},
		{Role: RoleTool, ToolName: "read_file", Content: "file body"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.Content != "looking at the trace" {
		t.Errorf("content = %q", resp.Content)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "parse_error_trace" {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}

	// System message must travel as systemInstruction, not a content.
	if gotReq.SystemInstruction == nil {
		t.Fatal("missing systemInstruction")
	}
	if len(gotReq.Contents) != 2 {
		t.Errorf("contents = %d, want 2", len(gotReq.Contents))
	}
	if gotReq.Contents[1].Parts[0].FunctionResponse == nil {
		t.Error("tool message did not become a functionResponse part")
	}
}
