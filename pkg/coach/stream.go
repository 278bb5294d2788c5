package coach

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
	"github.com/sc2coach/sc2coach/pkg/cliui"
)

// consume drains one model response: tokens go to the terminal and the
// speaker as they arrive, tool calls are dispatched and their outputs
// submitted so the same stream continues. The loop is flat — a response
// with several tool rounds still runs through this single for-select.
func (s *Session) consume(ctx context.Context, stream *assistant.Stream) (string, error) {
	var reply strings.Builder
	started := false

	for {
		evt, ok := stream.Next(ctx)
		if !ok {
			if evt.Err != nil {
				return reply.String(), evt.Err
			}
			return reply.String(), nil
		}

		switch {
		case evt.Err != nil:
			return reply.String(), evt.Err

		case evt.Token != "":
			if !started {
				fmt.Fprintf(s.cfg.Out, "%s ", cliui.CoachStyle.Render("coach:"))
				started = true
			}
			fmt.Fprint(s.cfg.Out, evt.Token)
			s.cfg.Speaker.Feed(evt.Token)
			reply.WriteString(evt.Token)

		case len(evt.ToolCalls) > 0:
			s.logger.Debug("tool calls requested",
				zap.Int("count", len(evt.ToolCalls)),
				zap.String("run_id", evt.RunID),
			)
			outputs := s.cfg.Tools.DispatchAll(ctx, evt.ToolCalls)
			if err := s.cfg.Assistant.SubmitToolOutputs(ctx, evt.RunID, outputs); err != nil {
				return reply.String(), fmt.Errorf("submitting tool outputs: %w", err)
			}

		case evt.Done:
			if started {
				fmt.Fprintln(s.cfg.Out)
			}
			return reply.String(), nil
		}
	}
}

// respond streams the model's answer to a user message on the active
// thread.
func (s *Session) respond(ctx context.Context, message string) (string, error) {
	stream, err := s.cfg.Assistant.Chat(ctx, message)
	if err != nil {
		return "", err
	}
	return s.consume(ctx, stream)
}

// open streams the model's first response on a freshly seeded thread.
func (s *Session) open(ctx context.Context) (string, error) {
	stream, err := s.cfg.Assistant.StreamThread(ctx)
	if err != nil {
		return "", err
	}
	return s.consume(ctx, stream)
}

// say delivers a canned line through the same surfaces a model reply
// would use.
func (s *Session) say(text string) {
	fmt.Fprintf(s.cfg.Out, "%s %s\n", cliui.CoachStyle.Render("coach:"), text)
	s.cfg.Speaker.Feed(text)
}
