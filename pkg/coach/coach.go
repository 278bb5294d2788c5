// Package coach runs the conversational coaching session: it consumes
// game and chat events, grounds each conversation in replay data, and
// drives the assistant backend with streamed, tool-calling responses.
package coach

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
	"github.com/sc2coach/sc2coach/pkg/events"
	"github.com/sc2coach/sc2coach/pkg/eventstream"
	"github.com/sc2coach/sc2coach/pkg/gameinfo"
	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/session"
	"github.com/sc2coach/sc2coach/pkg/speech"
	"github.com/sc2coach/sc2coach/pkg/store"
	"github.com/sc2coach/sc2coach/pkg/tools"
)

// Build-order projection windows, in game seconds, for each grounding
// context. A pre-game briefing needs only the opening; casting a whole
// replay needs most of it, workers included.
const (
	gameStartProjectionLimit = 300
	newReplayProjectionLimit = 600
	castProjectionLimit      = 1000
)

// Config wires the session's collaborators.
type Config struct {
	Assistant assistant.Assistant
	Store     store.Driver
	Tools     *tools.Registry
	Queue     *events.Queue
	Game      *gameinfo.Client
	Pulse     *gameinfo.PulseClient
	Publisher eventstream.Publisher
	Speaker   speech.Speaker
	Input     InputReader
	Out       io.Writer

	// Interactive enables the conversational turn loop. When false the
	// coach delivers its opening remarks and moves on.
	Interactive bool

	StudentName string
	StudentRace string

	// Backend labels the assistant provider in the session record.
	Backend string

	// Pricing per million tokens, captured at session start so cost
	// accounting is stable even if config changes mid-session.
	PromptPricing     float64
	CompletionPricing float64

	Logger *zap.Logger
}

// Session is the coaching session state machine. One session spans the
// daemon's lifetime and may hold many conversation threads, but at most
// one is active at a time.
type Session struct {
	cfg    Config
	logger *zap.Logger

	record *session.Record

	// busy guards the single-active-conversation invariant. Events
	// arriving while a conversation runs are dropped, not queued.
	busy atomic.Bool

	mu           sync.Mutex
	twitchThread string
	lastReplay   *replay.Replay
	pendingChat  []events.TwitchChat

	handlers map[string]func(context.Context, events.Event)
}

// New creates a session. Call Start before Run.
func New(cfg Config) *Session {
	s := &Session{
		cfg:    cfg,
		logger: cfg.Logger,
		record: session.NewRecord(cfg.Backend, cfg.PromptPricing, cfg.CompletionPricing),
	}

	s.handlers = map[string]func(context.Context, events.Event){
		events.NewReplay{}.Kind():    s.handleNewReplay,
		events.GameStart{}.Kind():    s.handleGameStart,
		events.Wake{}.Kind():         s.handleWake,
		events.TwitchChat{}.Kind():   s.handleTwitchChat,
		events.TwitchFollow{}.Kind(): s.handleTwitchFollow,
		events.TwitchRaid{}.Kind():   s.handleTwitchRaid,
		events.CastReplay{}.Kind():   s.handleCastReplay,
	}
	return s
}

// Record exposes the session's accounting record.
func (s *Session) Record() *session.Record {
	return s.record
}

// Start loads the student's most recent replay as baseline context. A
// student with no stored replays cannot be coached, so failure here is
// terminal.
func (s *Session) Start(ctx context.Context) error {
	rep, err := s.cfg.Store.MostRecentReplay(ctx, s.cfg.StudentName)
	if err != nil {
		return fmt.Errorf("loading most recent replay for %q: %w", s.cfg.StudentName, err)
	}

	s.mu.Lock()
	s.lastReplay = rep
	s.mu.Unlock()

	s.logger.Info("session started",
		zap.String("session_id", s.record.ID),
		zap.String("student", s.cfg.StudentName),
		zap.String("last_replay", rep.ID),
	)
	return nil
}

// Run consumes session events until ctx is canceled or the queue is
// closed. Handlers execute in their own goroutine so new events can be
// inspected (and dropped) while a conversation is in flight.
func (s *Session) Run(ctx context.Context) error {
	for {
		evt, err := s.cfg.Queue.Next(ctx)
		if err != nil {
			if err == events.ErrQueueClosed {
				return nil
			}
			return err
		}
		s.dispatch(ctx, evt)
	}
}

func (s *Session) dispatch(ctx context.Context, evt events.Event) {
	handler, ok := s.handlers[evt.Kind()]
	if !ok {
		s.logger.Warn("unhandled event", zap.String("kind", evt.Kind()))
		return
	}

	// Twitch chat is the exception to the one-conversation rule: its
	// thread persists across the session and messages arriving during
	// another conversation are still recorded.
	if chat, ok := evt.(events.TwitchChat); ok && s.busy.Load() {
		s.bufferTwitchMessage(chat)
		return
	}

	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Info("event dropped, conversation in progress",
			zap.String("kind", evt.Kind()),
		)
		return
	}

	go func() {
		defer s.busy.Store(false)
		handler(ctx, evt)
	}()
}

// finishThread records a completed thread's usage and checkpoints the
// session record so accounting survives a crash.
func (s *Session) finishThread(ctx context.Context, threadID string) {
	usage, err := s.cfg.Assistant.ThreadUsage(ctx, threadID)
	if err != nil {
		s.logger.Warn("thread usage unavailable",
			zap.String("thread_id", threadID),
			zap.Error(err),
		)
		return
	}

	s.record.AddUsage(session.NewUsage(threadID, usage.PromptTokens, usage.CompletionTokens))

	if err := s.cfg.Store.PutSession(ctx, s.record); err != nil {
		s.logger.Warn("session checkpoint failed", zap.Error(err))
	}
}

// Close settles the session: persists the final record and publishes a
// closed event with the total cost.
func (s *Session) Close(ctx context.Context) error {
	// The twitch thread lives for the whole session, so its usage is
	// settled here rather than per conversation.
	s.mu.Lock()
	twitchThread := s.twitchThread
	s.mu.Unlock()
	if twitchThread != "" {
		if usage, err := s.cfg.Assistant.ThreadUsage(ctx, twitchThread); err == nil {
			s.record.AddUsage(session.NewUsage(twitchThread, usage.PromptTokens, usage.CompletionTokens))
		}
	}

	cost := s.record.Cost()

	if err := s.cfg.Store.PutSession(ctx, s.record); err != nil {
		s.logger.Warn("final session save failed", zap.Error(err))
	}

	if s.cfg.Publisher != nil {
		event := &eventstream.SessionClosedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeSessionClosed,
			EventID:       uuid.NewString(),
			EmittedAt:     time.Now().UTC(),
			SessionID:     s.record.ID,
			Backend:       s.record.Backend,
			ThreadCount:   len(s.record.Threads),
			TotalTokens:   s.record.TotalTokens(),
			CostUSD:       cost,
		}
		if err := s.cfg.Publisher.PublishSessionClosed(ctx, event); err != nil {
			s.logger.Warn("session closed event failed", zap.Error(err))
		}
	}

	s.logger.Info("session closed",
		zap.String("session_id", s.record.ID),
		zap.Int("threads", len(s.record.Threads)),
		zap.Int("total_tokens", s.record.TotalTokens()),
		zap.Float64("cost_usd", cost),
	)
	return nil
}
