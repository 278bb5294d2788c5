package coach_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
	"github.com/sc2coach/sc2coach/pkg/assistant/mock"
	"github.com/sc2coach/sc2coach/pkg/coach"
	"github.com/sc2coach/sc2coach/pkg/events"
	"github.com/sc2coach/sc2coach/pkg/eventstream"
	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/speech"
	"github.com/sc2coach/sc2coach/pkg/store/inmemory"
	"github.com/sc2coach/sc2coach/pkg/tools"
)

// syncBuffer lets specs read session output while a handler goroutine
// is still writing to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// scriptedInput plays back a fixed sequence of student utterances.
type scriptedInput struct {
	lines chan string
}

func newScriptedInput(lines ...string) *scriptedInput {
	ch := make(chan string, len(lines))
	for _, l := range lines {
		ch <- l
	}
	close(ch)
	return &scriptedInput{lines: ch}
}

func (s *scriptedInput) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu      sync.Mutex
	replays []*eventstream.ReplayPersistedEvent
	closed  []*eventstream.SessionClosedEvent
}

func (p *capturePublisher) PublishReplay(_ context.Context, e *eventstream.ReplayPersistedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replays = append(p.replays, e)
	return nil
}

func (p *capturePublisher) PublishSessionClosed(_ context.Context, e *eventstream.SessionClosedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, e)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) sessionEvents() []*eventstream.SessionClosedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.SessionClosedEvent(nil), p.closed...)
}

func coachingReplay(id string, ts int64) *replay.Replay {
	return &replay.Replay{
		ID:            id,
		MapName:       "Alcyone LE",
		GameType:      "1v1",
		IsLadder:      true,
		GameLength:    620,
		RealLength:    610,
		UnixTimestamp: ts,
		Players: []replay.Player{
			{SID: 1, Name: "Nova", PlayRace: "Protoss", Result: "Win", AvgAPM: 140},
			{SID: 2, Name: "Rival", PlayRace: "Zerg", Result: "Loss", AvgAPM: 120},
		},
	}
}

var _ = Describe("Session", func() {
	var (
		ctx       context.Context
		driver    *inmemory.Driver
		client    *mock.Client
		queue     *events.Queue
		publisher *capturePublisher
		out       *syncBuffer
		input     *scriptedInput
		registry  *tools.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		queue = events.NewQueue(8, zap.NewNop())
		publisher = &capturePublisher{}
		out = &syncBuffer{}
		input = newScriptedInput()
		registry = tools.NewRegistry(zap.NewNop())

		_, err := driver.PutReplay(ctx, coachingReplay("hash-student", 100))
		Expect(err).NotTo(HaveOccurred())
	})

	newSession := func(interactive bool) *coach.Session {
		return coach.New(coach.Config{
			Assistant:         client,
			Store:             driver,
			Tools:             registry,
			Queue:             queue,
			Publisher:         publisher,
			Speaker:           speech.NopSpeaker{},
			Input:             input,
			Out:               out,
			Interactive:       interactive,
			StudentName:       "Nova",
			StudentRace:       "Protoss",
			Backend:           "mocked",
			PromptPricing:     0.0000025,
			CompletionPricing: 0.00001,
			Logger:            zap.NewNop(),
		})
	}

	Describe("Start", func() {
		It("loads the student's most recent replay", func() {
			client = mock.NewClient()
			Expect(newSession(false).Start(ctx)).To(Succeed())
		})

		It("fails when the student has no stored replays", func() {
			client = mock.NewClient()
			empty := inmemory.NewDriver()
			driver = empty
			err := newSession(false).Start(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Nova"))
		})
	})

	Describe("Run", func() {
		It("debriefs a new replay and records thread usage", func() {
			client = mock.NewClient(mock.Step{
				Tokens: []string{"Rough", " game", " out", " there."},
				Usage:  assistant.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
			})
			sess := newSession(false)
			Expect(sess.Start(ctx)).To(Succeed())

			queue.Put(events.NewReplay{Replay: coachingReplay("hash-new", 200)})
			queue.Close()
			Expect(sess.Run(ctx)).To(Succeed())

			Eventually(func() int {
				return len(sess.Record().Usages)
			}).WithTimeout(5 * time.Second).Should(Equal(1))

			rec := sess.Record()
			Expect(rec.Threads).To(HaveLen(1))
			Expect(rec.Usages[0].TotalTokens).To(Equal(120))
			Expect(out.String()).To(ContainSubstring("Rough game out there."))
		})

		It("drops events that arrive while a conversation is running", func() {
			client = mock.NewClient(
				mock.Step{Tokens: []string{"First."}, Usage: assistant.Usage{TotalTokens: 10}},
				mock.Step{Tokens: []string{"Second."}, Usage: assistant.Usage{TotalTokens: 10}},
			)
			sess := newSession(false)
			Expect(sess.Start(ctx)).To(Succeed())

			queue.Put(events.NewReplay{Replay: coachingReplay("hash-a", 200)})
			queue.Put(events.NewReplay{Replay: coachingReplay("hash-b", 300)})
			queue.Close()
			Expect(sess.Run(ctx)).To(Succeed())

			Eventually(func() int {
				return len(sess.Record().Usages)
			}).WithTimeout(5 * time.Second).Should(Equal(1))
			Expect(sess.Record().Threads).To(HaveLen(1))
		})

		It("runs tool calls and resumes the same response", func() {
			client = mock.NewClient(mock.Step{
				Tokens:       []string{"Let me check."},
				ToolCalls:    []assistant.ToolCall{{ID: "call-1", Name: "lookup"}},
				Continuation: []string{" Found it."},
				Usage:        assistant.Usage{PromptTokens: 50, CompletionTokens: 10, TotalTokens: 60},
			})
			registry.Register(assistant.Definition{Name: "lookup"}, func(context.Context, map[string]any) (string, error) {
				return "result-data", nil
			})
			sess := newSession(false)
			Expect(sess.Start(ctx)).To(Succeed())

			queue.Put(events.NewReplay{Replay: coachingReplay("hash-new", 200)})
			queue.Close()
			Expect(sess.Run(ctx)).To(Succeed())

			Eventually(client.SubmittedOutputs).WithTimeout(5 * time.Second).Should(HaveLen(1))
			outputs := client.SubmittedOutputs()[0]
			Expect(outputs).To(HaveLen(1))
			Expect(outputs[0].CallID).To(Equal("call-1"))
			Expect(outputs[0].Output).To(Equal("result-data"))

			Eventually(out.String).WithTimeout(5 * time.Second).Should(ContainSubstring("Let me check. Found it."))
		})

		It("tells the student when an opponent is unknown", func() {
			client = mock.NewClient()
			sess := newSession(false)
			Expect(sess.Start(ctx)).To(Succeed())

			queue.Put(events.GameStart{Opponent: "Stranger"})
			queue.Close()
			Expect(sess.Run(ctx)).To(Succeed())

			Eventually(out.String).WithTimeout(5 * time.Second).Should(ContainSubstring("Stranger"))
			Expect(sess.Record().Threads).To(BeEmpty())
		})

		It("holds an interactive conversation and saves the transcript", func() {
			client = mock.NewClient(
				mock.Step{
					Tokens: []string{"You lost your third base too early."},
					Usage:  assistant.Usage{PromptTokens: 100, CompletionTokens: 30, TotalTokens: 130},
				},
				mock.Step{
					Tokens: []string{"Hold the ramp and drop a shield battery."},
					Usage:  assistant.Usage{PromptTokens: 40, CompletionTokens: 20, TotalTokens: 60},
				},
			)
			input = newScriptedInput(
				"hm",
				"how do I hold the roach timing attack?",
				"thanks, good luck have fun",
			)
			sess := newSession(true)
			Expect(sess.Start(ctx)).To(Succeed())

			queue.Put(events.NewReplay{Replay: coachingReplay("hash-new", 200)})
			queue.Close()
			Expect(sess.Run(ctx)).To(Succeed())

			Eventually(func() int {
				return len(sess.Record().Usages)
			}).WithTimeout(5 * time.Second).Should(Equal(1))

			meta, err := driver.GetMetadata(ctx, "hash-new")
			Expect(err).NotTo(HaveOccurred())
			Expect(meta.Conversation).To(HaveLen(3))
			Expect(meta.Conversation[0].Role).To(Equal(assistant.RoleAssistant))
			Expect(meta.Conversation[0].Text).To(ContainSubstring("third base"))
			Expect(meta.Conversation[1].Role).To(Equal(assistant.RoleUser))
			Expect(meta.Conversation[1].Text).To(ContainSubstring("roach timing"))
			Expect(meta.Conversation[2].Text).To(ContainSubstring("shield battery"))

			Expect(out.String()).To(ContainSubstring("say a bit more"))
			Expect(out.String()).To(ContainSubstring("Good luck, have fun!"))
		})

		It("ends the conversation when the coach signs off", func() {
			client = mock.NewClient(
				mock.Step{
					Tokens: []string{"You lost your third base too early."},
					Usage:  assistant.Usage{PromptTokens: 100, CompletionTokens: 30, TotalTokens: 130},
				},
				mock.Step{
					Tokens: []string{"Hold the ramp. Good luck, have fun!"},
					Usage:  assistant.Usage{PromptTokens: 40, CompletionTokens: 20, TotalTokens: 60},
				},
			)
			input = newScriptedInput(
				"how do I hold the roach timing attack?",
				"what about defending the second base?",
			)
			sess := newSession(true)
			Expect(sess.Start(ctx)).To(Succeed())

			queue.Put(events.NewReplay{Replay: coachingReplay("hash-new", 200)})
			queue.Close()
			Expect(sess.Run(ctx)).To(Succeed())

			Eventually(func() int {
				return len(sess.Record().Usages)
			}).WithTimeout(5 * time.Second).Should(Equal(1))

			// The coach signed off on the first answer; the second scripted
			// question must never reach the model.
			meta, err := driver.GetMetadata(ctx, "hash-new")
			Expect(err).NotTo(HaveOccurred())
			Expect(meta.Conversation).To(HaveLen(3))
			Expect(meta.Conversation[2].Role).To(Equal(assistant.RoleAssistant))
			Expect(meta.Conversation[2].Text).To(ContainSubstring("Good luck, have fun!"))
			for _, line := range meta.Conversation {
				Expect(line.Text).NotTo(ContainSubstring("second base"))
			}
		})
	})

	Describe("Close", func() {
		It("persists the record and publishes a session closed event", func() {
			client = mock.NewClient(mock.Step{
				Tokens: []string{"Quick note."},
				Usage:  assistant.Usage{PromptTokens: 1000, CompletionTokens: 200, TotalTokens: 1200},
			})
			sess := newSession(false)
			Expect(sess.Start(ctx)).To(Succeed())

			queue.Put(events.NewReplay{Replay: coachingReplay("hash-new", 200)})
			queue.Close()
			Expect(sess.Run(ctx)).To(Succeed())
			Eventually(func() int {
				return len(sess.Record().Usages)
			}).WithTimeout(5 * time.Second).Should(Equal(1))

			Expect(sess.Close(ctx)).To(Succeed())

			saved, err := driver.GetSession(ctx, sess.Record().ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.TotalTokens()).To(Equal(1200))

			closedEvents := publisher.sessionEvents()
			Expect(closedEvents).To(HaveLen(1))
			evt := closedEvents[0]
			Expect(evt.EventType).To(Equal(eventstream.EventTypeSessionClosed))
			Expect(evt.SessionID).To(Equal(sess.Record().ID))
			Expect(evt.ThreadCount).To(Equal(1))
			Expect(evt.TotalTokens).To(Equal(1200))
			Expect(evt.CostUSD).To(BeNumerically(">", 0))
		})
	})
})
