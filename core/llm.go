package core

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	ErrRateLimited      = errors.New("Rate limit exceeded, please try again later.")
	ErrCreditsExhausted = errors.New("AI credits exhausted, please add credits to continue.")
)

// Tool describes a function the model must answer through. Parameters is a JSON schema.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one turn of a conversation. Tool turns answer the call named by ToolCallID.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Completer is a chat-completion LLM.
// Implementations map upstream 429 responses to ErrRateLimited and 402 to ErrCreditsExhausted.
type Completer interface {
	// CallTool forces the model to call `tool` and returns the raw JSON arguments.
	CallTool(ctx context.Context, system, user string, tool Tool) (json.RawMessage, error)
	// CompleteJSON asks the model for a single JSON object.
	CompleteJSON(ctx context.Context, system, user string) (json.RawMessage, error)
	// Chat runs one assistant turn over `msgs`. The model may answer or call any of `tools`.
	Chat(ctx context.Context, system string, msgs []ChatMessage, tools []Tool) (ChatMessage, error)
}
