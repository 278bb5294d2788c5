// Package assistant defines the provider-agnostic conversational backend
// contract. A session talks to exactly one Assistant; implementations
// live in the provider sub-packages (openai, mock).
package assistant

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Usage contains token counts for a thread.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolCall is a request from the model to invoke a local capability.
type ToolCall struct {
	// ID identifies the call when submitting its output back.
	ID string

	// Name of the registered tool.
	Name string

	// Args as decoded from the model's JSON arguments. A malformed
	// arguments payload yields a nil map, not an error.
	Args map[string]any
}

// ToolOutput is the result of a local tool invocation. Failed tools
// report their error text as Output rather than aborting the run.
type ToolOutput struct {
	CallID string
	Output string
}

// Definition describes a tool to the backend in JSON-schema form.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Assistant is the conversational backend. Implementations hold one
// active thread at a time; the session swaps threads explicitly.
type Assistant interface {
	// CreateThread starts a new conversation thread seeded with a
	// grounding message, returns its ID, and makes it active.
	CreateThread(ctx context.Context, seed string) (string, error)

	// SetActiveThread switches which thread subsequent calls target.
	SetActiveThread(threadID string)

	// ActiveThread returns the current thread ID, empty if none.
	ActiveThread() string

	// AddMessage appends a message to the active thread without
	// running the model.
	AddMessage(ctx context.Context, role, text string) error

	// StreamThread runs the model against the active thread and
	// streams the response.
	StreamThread(ctx context.Context) (*Stream, error)

	// Chat appends a user message to the active thread and streams
	// the model's response.
	Chat(ctx context.Context, message string) (*Stream, error)

	// SubmitToolOutputs resumes the run identified by runID with the
	// tool results. Continuation events arrive on the same Stream
	// that surfaced the tool calls.
	SubmitToolOutputs(ctx context.Context, runID string, outputs []ToolOutput) error

	// ThreadUsage reports accumulated token usage for a thread.
	ThreadUsage(ctx context.Context, threadID string) (Usage, error)
}
