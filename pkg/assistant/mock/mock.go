// Package mock provides a scripted assistant for tests and for running
// the coach without a live backend.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/sc2coach/sc2coach/pkg/assistant"
)

// Message is one recorded thread entry.
type Message struct {
	Role string
	Text string
}

// Step scripts one model response. Tokens stream first; if ToolCalls is
// set the stream pauses until outputs are submitted, then Continuation
// tokens stream before completion.
type Step struct {
	Tokens       []string
	ToolCalls    []assistant.ToolCall
	Continuation []string
	Usage        assistant.Usage
	Err          error
}

// Client implements assistant.Assistant from a fixed script. Each call
// to StreamThread or Chat consumes the next step; once the script is
// exhausted every run replies with a short canned token.
type Client struct {
	mu         sync.Mutex
	script     []Step
	stepIndex  int
	threads    map[string][]Message
	active     string
	usage      map[string]assistant.Usage
	nextThread int
	nextRun    int
	pending    map[string]pendingRun
	submitted  []pendingRun
}

type pendingRun struct {
	stream   *assistant.Stream
	step     Step
	threadID string

	// Outputs submitted for the run, recorded for assertions.
	Outputs []assistant.ToolOutput
}

// NewClient creates a mock assistant that will play back the script.
func NewClient(script ...Step) *Client {
	return &Client{
		script:  script,
		threads: make(map[string][]Message),
		usage:   make(map[string]assistant.Usage),
		pending: make(map[string]pendingRun),
	}
}

func (c *Client) CreateThread(_ context.Context, seed string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextThread++
	id := fmt.Sprintf("thread_%d", c.nextThread)
	if seed != "" {
		c.threads[id] = []Message{{Role: assistant.RoleUser, Text: seed}}
	} else {
		c.threads[id] = nil
	}
	c.active = id
	return id, nil
}

func (c *Client) SetActiveThread(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = threadID
}

func (c *Client) ActiveThread() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Client) AddMessage(_ context.Context, role, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == "" {
		return fmt.Errorf("no active thread")
	}
	c.threads[c.active] = append(c.threads[c.active], Message{Role: role, Text: text})
	return nil
}

func (c *Client) StreamThread(_ context.Context) (*assistant.Stream, error) {
	c.mu.Lock()

	if c.active == "" {
		c.mu.Unlock()
		return nil, fmt.Errorf("no active thread")
	}

	step := Step{Tokens: []string{"ok"}}
	if c.stepIndex < len(c.script) {
		step = c.script[c.stepIndex]
		c.stepIndex++
	}
	threadID := c.active

	c.nextRun++
	runID := fmt.Sprintf("run_%d", c.nextRun)

	stream := assistant.NewStream()
	if len(step.ToolCalls) > 0 {
		c.pending[runID] = pendingRun{stream: stream, step: step, threadID: threadID}
	}
	c.mu.Unlock()

	go func() {
		for _, tok := range step.Tokens {
			stream.Push(assistant.StreamEvent{Token: tok})
		}

		if step.Err != nil {
			stream.Push(assistant.StreamEvent{Err: step.Err})
			stream.End()
			return
		}

		if len(step.ToolCalls) > 0 {
			// Pause: SubmitToolOutputs finishes this stream.
			stream.Push(assistant.StreamEvent{ToolCalls: step.ToolCalls, RunID: runID})
			return
		}

		c.finish(threadID, step, stream)
	}()

	return stream, nil
}

func (c *Client) Chat(ctx context.Context, message string) (*assistant.Stream, error) {
	if err := c.AddMessage(ctx, assistant.RoleUser, message); err != nil {
		return nil, err
	}
	return c.StreamThread(ctx)
}

func (c *Client) SubmitToolOutputs(_ context.Context, runID string, outputs []assistant.ToolOutput) error {
	c.mu.Lock()
	run, ok := c.pending[runID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("no pending run %q", runID)
	}
	delete(c.pending, runID)
	run.Outputs = outputs
	c.submitted = append(c.submitted, run)
	c.mu.Unlock()

	go func() {
		for _, tok := range run.step.Continuation {
			run.stream.Push(assistant.StreamEvent{Token: tok})
		}
		c.finish(run.threadID, run.step, run.stream)
	}()

	return nil
}

func (c *Client) ThreadUsage(_ context.Context, threadID string) (assistant.Usage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage[threadID], nil
}

// Messages returns the recorded entries of a thread.
func (c *Client) Messages(threadID string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.threads[threadID]...)
}

// SubmittedOutputs returns every tool output batch submitted so far, in
// submission order.
func (c *Client) SubmittedOutputs() [][]assistant.ToolOutput {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]assistant.ToolOutput, 0, len(c.submitted))
	for _, run := range c.submitted {
		out = append(out, run.Outputs)
	}
	return out
}

func (c *Client) finish(threadID string, step Step, stream *assistant.Stream) {
	c.mu.Lock()
	total := c.usage[threadID]
	total.PromptTokens += step.Usage.PromptTokens
	total.CompletionTokens += step.Usage.CompletionTokens
	total.TotalTokens += step.Usage.TotalTokens
	c.usage[threadID] = total
	c.mu.Unlock()

	stream.Push(assistant.StreamEvent{Done: true})
	stream.End()
}
