// Package openai implements the assistant contract against the OpenAI
// Assistants v2 API, streaming run events over SSE.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
	"github.com/sc2coach/sc2coach/pkg/sse"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config holds the settings for the OpenAI-backed assistant.
type Config struct {
	// APIKey authenticates every request.
	APIKey string

	// AssistantID selects the pre-configured assistant to run.
	AssistantID string

	// BaseURL overrides the API endpoint (defaults to the public API).
	BaseURL string

	// Tools are advertised on every run so the model can call them.
	Tools []assistant.Definition

	// HTTPClient overrides the default client (60 s timeout is applied
	// when nil; streaming responses are exempt from the timeout).
	HTTPClient *http.Client

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Client implements assistant.Assistant against the OpenAI API.
type Client struct {
	baseURL     string
	apiKey      string
	assistantID string
	tools       []toolDef
	httpc       *http.Client
	logger      *zap.Logger

	mu           sync.Mutex
	activeThread string
	activeStream *assistant.Stream
	usage        map[string]assistant.Usage
}

// NewClient creates an OpenAI assistant client.
func NewClient(c Config) (*Client, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("openai: missing API key")
	}
	if c.AssistantID == "" {
		return nil, fmt.Errorf("openai: missing assistant ID")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.HTTPClient == nil {
		// No client-level timeout: run streams stay open for minutes.
		// Per-request deadlines come from the caller's context.
		c.HTTPClient = &http.Client{}
	}

	tools := make([]toolDef, 0, len(c.Tools))
	for _, def := range c.Tools {
		tools = append(tools, toolDef{Type: "function", Function: def})
	}

	return &Client{
		baseURL:     c.BaseURL,
		apiKey:      c.APIKey,
		assistantID: c.AssistantID,
		tools:       tools,
		httpc:       c.HTTPClient,
		logger:      c.Logger,
		usage:       make(map[string]assistant.Usage),
	}, nil
}

func (c *Client) CreateThread(ctx context.Context, seed string) (string, error) {
	req := threadCreateRequest{}
	if seed != "" {
		req.Messages = []threadMessage{{Role: assistant.RoleUser, Content: seed}}
	}

	var thread threadObject
	if err := c.postJSON(ctx, "/threads", req, &thread); err != nil {
		return "", fmt.Errorf("creating thread: %w", err)
	}

	c.mu.Lock()
	c.activeThread = thread.ID
	c.mu.Unlock()

	c.logger.Debug("thread created", zap.String("thread_id", thread.ID))
	return thread.ID, nil
}

func (c *Client) SetActiveThread(threadID string) {
	c.mu.Lock()
	c.activeThread = threadID
	c.mu.Unlock()
}

func (c *Client) ActiveThread() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeThread
}

func (c *Client) AddMessage(ctx context.Context, role, text string) error {
	threadID := c.ActiveThread()
	if threadID == "" {
		return fmt.Errorf("no active thread")
	}

	path := fmt.Sprintf("/threads/%s/messages", threadID)
	if err := c.postJSON(ctx, path, threadMessage{Role: role, Content: text}, nil); err != nil {
		return fmt.Errorf("adding message: %w", err)
	}
	return nil
}

func (c *Client) StreamThread(ctx context.Context) (*assistant.Stream, error) {
	threadID := c.ActiveThread()
	if threadID == "" {
		return nil, fmt.Errorf("no active thread")
	}

	path := fmt.Sprintf("/threads/%s/runs", threadID)
	body, err := c.postStream(ctx, path, runCreateRequest{
		AssistantID: c.assistantID,
		Stream:      true,
		Tools:       c.tools,
	})
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}

	stream := assistant.NewStream()
	c.mu.Lock()
	c.activeStream = stream
	c.mu.Unlock()

	go c.consume(body, stream, threadID)
	return stream, nil
}

func (c *Client) Chat(ctx context.Context, message string) (*assistant.Stream, error) {
	if err := c.AddMessage(ctx, assistant.RoleUser, message); err != nil {
		return nil, err
	}
	return c.StreamThread(ctx)
}

// SubmitToolOutputs resumes a paused run. The continuation SSE response
// feeds the stream that surfaced the tool calls, so the consumer's
// receive loop just keeps going.
func (c *Client) SubmitToolOutputs(ctx context.Context, runID string, outputs []assistant.ToolOutput) error {
	threadID := c.ActiveThread()

	c.mu.Lock()
	stream := c.activeStream
	c.mu.Unlock()
	if stream == nil {
		return fmt.Errorf("no active stream to resume")
	}

	wire := make([]toolOutput, 0, len(outputs))
	for _, out := range outputs {
		wire = append(wire, toolOutput{ToolCallID: out.CallID, Output: out.Output})
	}

	path := fmt.Sprintf("/threads/%s/runs/%s/submit_tool_outputs", threadID, runID)
	body, err := c.postStream(ctx, path, submitToolOutputsRequest{ToolOutputs: wire, Stream: true})
	if err != nil {
		return fmt.Errorf("submitting tool outputs: %w", err)
	}

	go c.consume(body, stream, threadID)
	return nil
}

func (c *Client) ThreadUsage(_ context.Context, threadID string) (assistant.Usage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage[threadID], nil
}

// consume reads one SSE response and translates run events onto the
// stream. A run that pauses for tool outputs leaves the stream open;
// the continuation response picks it back up.
func (c *Client) consume(body io.ReadCloser, stream *assistant.Stream, threadID string) {
	defer body.Close()

	reader := sse.NewReader(body)
	paused := false

	for {
		ev, err := reader.Next()
		if err != nil {
			stream.Push(assistant.StreamEvent{Err: fmt.Errorf("reading run stream: %w", err)})
			stream.End()
			return
		}
		if ev == nil || ev.Data == "[DONE]" {
			break
		}

		switch ev.Type {
		case "thread.message.delta":
			var delta messageDelta
			if err := json.Unmarshal([]byte(ev.Data), &delta); err != nil {
				c.logger.Warn("undecodable message delta", zap.Error(err))
				continue
			}
			for _, part := range delta.Delta.Content {
				if part.Text.Value != "" {
					stream.Push(assistant.StreamEvent{Token: part.Text.Value})
				}
			}

		case "thread.run.requires_action":
			var run runObject
			if err := json.Unmarshal([]byte(ev.Data), &run); err != nil {
				c.logger.Warn("undecodable run event", zap.Error(err))
				continue
			}
			if run.RequiredAction == nil {
				continue
			}

			calls := make([]assistant.ToolCall, 0, len(run.RequiredAction.SubmitToolOutputs.ToolCalls))
			for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					c.logger.Warn("undecodable tool arguments",
						zap.String("tool", tc.Function.Name),
						zap.Error(err),
					)
					args = nil
				}
				calls = append(calls, assistant.ToolCall{
					ID:   tc.ID,
					Name: tc.Function.Name,
					Args: args,
				})
			}

			paused = true
			stream.Push(assistant.StreamEvent{ToolCalls: calls, RunID: run.ID})

		case "thread.run.completed":
			var run runObject
			if err := json.Unmarshal([]byte(ev.Data), &run); err == nil && run.Usage != nil {
				c.recordUsage(threadID, run.Usage)
			}
			stream.Push(assistant.StreamEvent{Done: true})
			stream.End()
			return

		case "thread.run.failed", "thread.run.expired", "thread.run.cancelled":
			var run runObject
			msg := ev.Type
			if err := json.Unmarshal([]byte(ev.Data), &run); err == nil && run.LastError != nil {
				msg = run.LastError.Message
			}
			stream.Push(assistant.StreamEvent{Err: fmt.Errorf("run failed: %s", msg)})
			stream.End()
			return
		}
	}

	// Stream exhausted. A paused run continues on the submit_tool_outputs
	// response; anything else ended without a terminal run event.
	if !paused {
		stream.Push(assistant.StreamEvent{Err: fmt.Errorf("run stream ended unexpectedly")})
		stream.End()
	}
}

func (c *Client) recordUsage(threadID string, u *runUsage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.usage[threadID]
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
	c.usage[threadID] = total
}

// postJSON sends a request and decodes the JSON response into out when
// out is non-nil.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	resp, err := c.post(ctx, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// postStream sends a request and hands back the raw body for SSE
// consumption. The caller owns closing it.
func (c *Client) postStream(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	resp, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("openai: %s (%s)", apiErr.Error.Message, resp.Status)
		}
		return nil, fmt.Errorf("openai: unexpected status %s", resp.Status)
	}

	c.logger.Debug("api call",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}
