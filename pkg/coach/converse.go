package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
	"github.com/sc2coach/sc2coach/pkg/cliui"
	"github.com/sc2coach/sc2coach/pkg/replay"
)

const (
	// idleTimeout ends a conversation that's gone quiet.
	idleTimeout = 3 * time.Minute

	// minInputRunes rejects accidental input — a keyboard bump or a
	// transcription fragment is never a real question.
	minInputRunes = 7

	// nonInteractiveDelay paces event handling when conversations are
	// disabled, standing in for the time a reply would take.
	nonInteractiveDelay = 2 * time.Second

	goodbyePhrase      = "good luck, have fun"
	goodbyeTailLength  = 20
	goodbyeMaxDistance = 8
)

// isGoodbye reports whether a line winds the conversation down. The
// tail of the line is compared against the traditional sign-off so
// variants ("GLHF, good luck, have fun", "good luck have fun") all match.
func isGoodbye(line string) bool {
	normalized := strings.ToLower(strings.TrimSpace(line))

	runes := []rune(normalized)
	if len(runes) > goodbyeTailLength {
		runes = runes[len(runes)-goodbyeTailLength:]
	}

	return levenshtein.Distance(string(runes), goodbyePhrase, nil) < goodbyeMaxDistance
}

// converse runs the back-and-forth turn loop on the active thread until
// either side says goodbye, the student goes quiet, or the context ends.
// It returns the transcript of both sides.
func (s *Session) converse(ctx context.Context) []replay.ConversationLine {
	if !s.cfg.Interactive {
		// Nothing to wait for; pause briefly so back-to-back events
		// don't pile replies on top of each other.
		select {
		case <-ctx.Done():
		case <-time.After(nonInteractiveDelay):
		}
		return nil
	}

	var transcript []replay.ConversationLine

	for {
		turnCtx, cancel := context.WithTimeout(ctx, idleTimeout)
		input, err := s.cfg.Input.ReadLine(turnCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				fmt.Fprintln(s.cfg.Out, cliui.FaintStyle.Render("(conversation timed out)"))
				s.logger.Debug("conversation idle timeout")
			} else if !errors.Is(err, context.Canceled) {
				s.logger.Warn("input read failed", zap.Error(err))
			}
			return transcript
		}

		if utf8.RuneCountInString(strings.TrimSpace(input)) < minInputRunes {
			fmt.Fprintln(s.cfg.Out, cliui.FaintStyle.Render("(say a bit more than that)"))
			continue
		}

		if isGoodbye(input) {
			s.say("Good luck, have fun!")
			return transcript
		}

		transcript = append(transcript, replay.ConversationLine{
			Role:      assistant.RoleUser,
			Text:      input,
			CreatedAt: time.Now().UTC(),
		})

		reply, err := s.respond(ctx, input)
		if err != nil {
			s.logger.Error("model response failed", zap.Error(err))
			s.say("Sorry, I lost my train of thought there.")
			continue
		}

		transcript = append(transcript, replay.ConversationLine{
			Role:      assistant.RoleAssistant,
			Text:      reply,
			CreatedAt: time.Now().UTC(),
		})

		// The model closes conversations with the same sign-off.
		if isGoodbye(reply) {
			return transcript
		}
	}
}

// saveTranscript merges conversation lines into the replay's metadata.
func (s *Session) saveTranscript(ctx context.Context, replayID string, lines []replay.ConversationLine) {
	if len(lines) == 0 {
		return
	}

	meta, err := s.cfg.Store.GetMetadata(ctx, replayID)
	if err != nil {
		meta = &replay.Metadata{ReplayID: replayID}
	}
	meta.Conversation = append(meta.Conversation, lines...)

	if _, err := s.cfg.Store.PutMetadata(ctx, meta); err != nil {
		s.logger.Warn("transcript save failed",
			zap.String("replay_id", replayID),
			zap.Error(err),
		)
	}
}
