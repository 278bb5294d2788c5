package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
	"github.com/sc2coach/sc2coach/pkg/events"
	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/replay/projection"
	"github.com/sc2coach/sc2coach/pkg/store"
	"github.com/sc2coach/sc2coach/pkg/utils"
)

// maxGroundingBytes caps the projected replay document embedded in a
// seed prompt. The projector halves its build-order window until the
// document fits.
const maxGroundingBytes = 48 * 1024

// castTickInterval paces the casting commentary against the replay
// playback clock.
const castTickInterval = 30 * time.Second

func (s *Session) handleNewReplay(ctx context.Context, evt events.Event) {
	rep := evt.(events.NewReplay).Replay
	log := s.logger.With(zap.String("replay_id", rep.ID))

	s.mu.Lock()
	s.lastReplay = rep
	s.mu.Unlock()

	grounding, err := projection.ProjectJSONBudget(
		rep, projection.DefaultFields, newReplayProjectionLimit, false, maxGroundingBytes)
	if err != nil {
		log.Error("replay projection failed", zap.Error(err))
		return
	}

	seed := s.persona() + fmt.Sprintf(newReplaySeed, s.cfg.StudentName, grounding)
	threadID, err := s.cfg.Assistant.CreateThread(ctx, seed)
	if err != nil {
		log.Error("thread creation failed", zap.Error(err))
		return
	}
	s.record.AddThread(threadID)

	opening, err := s.open(ctx)
	if err != nil {
		log.Error("post-game debrief failed", zap.Error(err))
		s.finishThread(ctx, threadID)
		return
	}

	transcript := []replay.ConversationLine{{
		Role:      assistant.RoleAssistant,
		Text:      opening,
		CreatedAt: time.Now().UTC(),
	}}
	transcript = append(transcript, s.converse(ctx)...)

	s.saveTranscript(ctx, rep.ID, transcript)
	s.finishThread(ctx, threadID)
}

func (s *Session) handleGameStart(ctx context.Context, evt events.Event) {
	start := evt.(events.GameStart)
	log := s.logger.With(zap.String("opponent", start.Opponent))
	log.Info("game starting")

	rep, err := s.cfg.Store.MostRecentReplay(ctx, start.Opponent)
	if store.IsNotFound(err) {
		s.say(fmt.Sprintf(gameStartNoInfo, start.Opponent))
		return
	}
	if err != nil {
		log.Error("opponent lookup failed", zap.Error(err))
		return
	}

	grounding, err := projection.ProjectJSONBudget(
		rep, projection.DefaultFields, gameStartProjectionLimit, false, maxGroundingBytes)
	if err != nil {
		log.Error("replay projection failed", zap.Error(err))
		return
	}

	seed := s.persona() + fmt.Sprintf(gameStartSeed,
		s.cfg.StudentName, start.Opponent, s.ladderHistory(ctx, start.Opponent), grounding)

	threadID, err := s.cfg.Assistant.CreateThread(ctx, seed)
	if err != nil {
		log.Error("thread creation failed", zap.Error(err))
		return
	}
	s.record.AddThread(threadID)

	if _, err := s.open(ctx); err != nil {
		log.Error("scouting briefing failed", zap.Error(err))
	}
	s.converse(ctx)
	s.finishThread(ctx, threadID)
}

func (s *Session) handleWake(ctx context.Context, _ events.Event) {
	s.mu.Lock()
	rep := s.lastReplay
	s.mu.Unlock()

	grounding, err := projection.ProjectJSONBudget(
		rep, projection.DefaultFields, newReplayProjectionLimit, false, maxGroundingBytes)
	if err != nil {
		s.logger.Error("replay projection failed", zap.Error(err))
		return
	}

	seed := s.persona() + fmt.Sprintf(wakeSeed, s.cfg.StudentName, grounding)
	threadID, err := s.cfg.Assistant.CreateThread(ctx, seed)
	if err != nil {
		s.logger.Error("thread creation failed", zap.Error(err))
		return
	}
	s.record.AddThread(threadID)

	if _, err := s.open(ctx); err != nil {
		s.logger.Error("wake greeting failed", zap.Error(err))
	}
	s.converse(ctx)
	s.finishThread(ctx, threadID)
}

func (s *Session) handleTwitchChat(ctx context.Context, evt events.Event) {
	chat := evt.(events.TwitchChat)

	threadID, err := s.ensureTwitchThread(ctx)
	if err != nil {
		s.logger.Error("twitch thread unavailable", zap.Error(err))
		return
	}
	s.cfg.Assistant.SetActiveThread(threadID)
	s.flushPendingChat(ctx)

	if _, err := s.respond(ctx, fmt.Sprintf("%s: %s", chat.User, chat.Message)); err != nil {
		s.logger.Error("twitch reply failed", zap.Error(err))
	}
}

func (s *Session) handleTwitchFollow(ctx context.Context, evt events.Event) {
	follow := evt.(events.TwitchFollow)
	s.twitchOneShot(ctx, fmt.Sprintf("(event) %s just followed the channel. Thank them in one line.", follow.User))
}

func (s *Session) handleTwitchRaid(ctx context.Context, evt events.Event) {
	raid := evt.(events.TwitchRaid)
	s.twitchOneShot(ctx, fmt.Sprintf(
		"(event) %s just raided with %d viewers. Welcome them in a line or two.",
		raid.User, raid.Viewers))
}

func (s *Session) twitchOneShot(ctx context.Context, prompt string) {
	threadID, err := s.ensureTwitchThread(ctx)
	if err != nil {
		s.logger.Error("twitch thread unavailable", zap.Error(err))
		return
	}
	s.cfg.Assistant.SetActiveThread(threadID)

	if _, err := s.respond(ctx, prompt); err != nil {
		s.logger.Error("twitch reply failed", zap.Error(err))
	}
}

// ensureTwitchThread lazily creates the session-long chat thread.
func (s *Session) ensureTwitchThread(ctx context.Context) (string, error) {
	s.mu.Lock()
	threadID := s.twitchThread
	s.mu.Unlock()
	if threadID != "" {
		return threadID, nil
	}

	seed := s.persona() + fmt.Sprintf(twitchSeed, s.cfg.StudentName)
	threadID, err := s.cfg.Assistant.CreateThread(ctx, seed)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.twitchThread = threadID
	s.mu.Unlock()
	s.record.AddThread(threadID)
	return threadID, nil
}

// bufferTwitchMessage holds a chat message that arrived while another
// conversation was running; it is replayed into the twitch thread the
// next time chat is handled.
func (s *Session) bufferTwitchMessage(chat events.TwitchChat) {
	s.mu.Lock()
	s.pendingChat = append(s.pendingChat, chat)
	s.mu.Unlock()

	s.logger.Debug("twitch message buffered",
		zap.String("user", chat.User),
		zap.String("message", utils.Truncate(chat.Message, 64)),
	)
}

func (s *Session) flushPendingChat(ctx context.Context) {
	s.mu.Lock()
	pending := s.pendingChat
	s.pendingChat = nil
	s.mu.Unlock()

	for _, chat := range pending {
		msg := fmt.Sprintf("%s: %s", chat.User, chat.Message)
		if err := s.cfg.Assistant.AddMessage(ctx, assistant.RoleUser, msg); err != nil {
			s.logger.Warn("buffered twitch message lost", zap.Error(err))
		}
	}
}

func (s *Session) handleCastReplay(ctx context.Context, evt events.Event) {
	rep := evt.(events.CastReplay).Replay
	log := s.logger.With(zap.String("replay_id", rep.ID))

	if len(rep.Players) >= 2 {
		s.say(fmt.Sprintf("Up next: %s playing %s against %s playing %s on %s!",
			rep.Players[0].Name, rep.Players[0].PlayRace,
			rep.Players[1].Name, rep.Players[1].PlayRace,
			rep.MapName))
	}

	grounding, err := projection.ProjectJSONBudget(
		rep, projection.DefaultFields, castProjectionLimit, true, maxGroundingBytes)
	if err != nil {
		log.Error("replay projection failed", zap.Error(err))
		return
	}

	seed := s.persona() + fmt.Sprintf(castSeed, s.cfg.StudentName, grounding)
	threadID, err := s.cfg.Assistant.CreateThread(ctx, seed)
	if err != nil {
		log.Error("thread creation failed", zap.Error(err))
		return
	}
	s.record.AddThread(threadID)

	s.castLoop(ctx, rep, log)

	if _, err := s.respond(ctx, fmt.Sprintf(castOutroPrompt, s.cfg.StudentName)); err != nil {
		log.Error("cast outro failed", zap.Error(err))
	}
	s.finishThread(ctx, threadID)
}

// castLoop commentates against the live playback clock until the replay
// runs out, the client goes away, or the clock stops advancing.
func (s *Session) castLoop(ctx context.Context, rep *replay.Replay, log *zap.Logger) {
	lastClock := -1.0

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(castTickInterval):
		}

		info, err := s.cfg.Game.Game(ctx)
		if err != nil {
			log.Warn("game client unreachable, ending cast", zap.Error(err))
			return
		}

		if info.DisplayTime <= lastClock {
			log.Debug("playback clock stopped, ending cast")
			return
		}
		lastClock = info.DisplayTime

		clock := replay.Secs2Time(int(info.DisplayTime))
		if _, err := s.respond(ctx, fmt.Sprintf(castTickPrompt, clock)); err != nil {
			log.Error("cast commentary failed", zap.Error(err))
			return
		}

		if int(info.DisplayTime) >= rep.GameLength {
			return
		}
	}
}

func (s *Session) persona() string {
	race := s.cfg.StudentRace
	if race == "" {
		race = "Random"
	}
	return fmt.Sprintf(personaSeed, s.cfg.StudentName, race)
}

// ladderHistory renders the opponent's pulse summary for the scouting
// seed, or an empty string when unavailable.
func (s *Session) ladderHistory(ctx context.Context, opponent string) string {
	if s.cfg.Pulse == nil {
		return ""
	}

	summaries, err := s.cfg.Pulse.SearchSummaries(ctx, opponent)
	if err != nil || len(summaries) == 0 {
		if err != nil {
			s.logger.Debug("pulse lookup failed", zap.Error(err))
		}
		return ""
	}

	var b strings.Builder
	b.WriteString(" and their ladder history:\n")
	for _, row := range summaries {
		fmt.Fprintf(&b, "- %s: %d games, last rating %d, peak %d\n",
			row.Race, row.Games, row.RatingLast, row.RatingMax)
	}
	return b.String()
}
