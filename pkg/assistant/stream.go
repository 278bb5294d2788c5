package assistant

import "context"

// StreamEvent is a single step of a streamed model response. Exactly one
// of the fields is meaningful per event: a text delta, a batch of tool
// calls that pauses the run until outputs are submitted, a terminal
// error, or completion.
type StreamEvent struct {
	// Token is a partial text delta.
	Token string

	// ToolCalls, when non-empty, means the run is paused waiting on
	// SubmitToolOutputs for RunID.
	ToolCalls []ToolCall

	// RunID identifies the paused run for tool output submission.
	RunID string

	// Err reports a failed run. The stream ends after an error event.
	Err error

	// Done marks the final event of a completed response.
	Done bool
}

// Stream delivers StreamEvents from a model run. A run that pauses for
// tool outputs keeps the stream open; continuation events from
// SubmitToolOutputs arrive on the same stream, so callers consume a
// whole multi-step response with one flat receive loop.
type Stream struct {
	ch chan StreamEvent
}

// NewStream creates a stream. Providers push events; sessions consume.
func NewStream() *Stream {
	return &Stream{ch: make(chan StreamEvent, 16)}
}

// Next blocks for the next event. The second return is false once the
// stream is closed and drained.
func (s *Stream) Next(ctx context.Context) (StreamEvent, bool) {
	select {
	case <-ctx.Done():
		return StreamEvent{Err: ctx.Err()}, false
	case evt, ok := <-s.ch:
		return evt, ok
	}
}

// Push delivers an event to the consumer. Provider-side only.
func (s *Stream) Push(evt StreamEvent) {
	s.ch <- evt
}

// End closes the stream. Provider-side only, after the final event.
func (s *Stream) End() {
	close(s.ch)
}
