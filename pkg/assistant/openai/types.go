package openai

import "github.com/sc2coach/sc2coach/pkg/assistant"

// Wire types for the OpenAI Assistants v2 API. Only the fields this
// client reads or writes are declared.

type threadMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type threadCreateRequest struct {
	Messages []threadMessage `json:"messages,omitempty"`
}

type threadObject struct {
	ID string `json:"id"`
}

type toolDef struct {
	Type     string               `json:"type"`
	Function assistant.Definition `json:"function"`
}

type runCreateRequest struct {
	AssistantID string    `json:"assistant_id"`
	Stream      bool      `json:"stream"`
	Tools       []toolDef `json:"tools,omitempty"`
}

type toolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

type submitToolOutputsRequest struct {
	ToolOutputs []toolOutput `json:"tool_outputs"`
	Stream      bool         `json:"stream"`
}

type runObject struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	Status         string          `json:"status"`
	RequiredAction *requiredAction `json:"required_action,omitempty"`
	Usage          *runUsage       `json:"usage,omitempty"`
	LastError      *runError       `json:"last_error,omitempty"`
}

type requiredAction struct {
	Type              string `json:"type"`
	SubmitToolOutputs struct {
		ToolCalls []wireToolCall `json:"tool_calls"`
	} `json:"submit_tool_outputs"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type runUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type runError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageDelta struct {
	Delta struct {
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"delta"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
