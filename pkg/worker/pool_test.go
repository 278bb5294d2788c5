package worker_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/eventstream"
	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/store/inmemory"
	"github.com/sc2coach/sc2coach/pkg/worker"
)

// capturePublisher records published replay events.
type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.ReplayPersistedEvent
}

func (p *capturePublisher) PublishReplay(_ context.Context, e *eventstream.ReplayPersistedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) PublishSessionClosed(context.Context, *eventstream.SessionClosedEvent) error {
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) replayEvents() []*eventstream.ReplayPersistedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.ReplayPersistedEvent(nil), p.events...)
}

// gatedDriver blocks PutReplay until released, to hold a worker busy.
type gatedDriver struct {
	*inmemory.Driver
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *gatedDriver) PutReplay(ctx context.Context, r *replay.Replay) (bool, error) {
	d.once.Do(func() {
		close(d.entered)
		<-d.release
	})
	return d.Driver.PutReplay(ctx, r)
}

func poolReplay(id string) *replay.Replay {
	return &replay.Replay{
		ID:         id,
		Filename:   id + ".SC2Replay",
		MapName:    "Alcyone LE",
		GameLength: 600,
		Players: []replay.Player{
			{SID: 1, Name: "Nova", Result: "Win"},
			{SID: 2, Name: "Rival", Result: "Loss"},
		},
	}
}

var _ = Describe("Pool", func() {
	var (
		ctx       context.Context
		driver    *inmemory.Driver
		publisher *capturePublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		publisher = &capturePublisher{}
	})

	newPool := func(d worker.Config) *worker.Pool {
		if d.Logger == nil {
			d.Logger = zap.NewNop()
		}
		pool, err := worker.NewPool(&d)
		Expect(err).NotTo(HaveOccurred())
		return pool
	}

	It("persists enqueued replays", func() {
		pool := newPool(worker.Config{Driver: driver})

		Expect(pool.Enqueue(worker.Job{Replay: poolReplay("hash-1")})).To(BeTrue())
		Expect(pool.Enqueue(worker.Job{Replay: poolReplay("hash-2")})).To(BeTrue())
		pool.Close()

		Expect(driver.Count()).To(Equal(2))
		has, err := driver.HasReplay(ctx, "hash-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(has).To(BeTrue())
	})

	It("merges player identities across jobs", func() {
		pool := newPool(worker.Config{Driver: driver})

		first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		second := first.Add(24 * time.Hour)

		pool.Enqueue(worker.Job{
			Replay: poolReplay("hash-1"),
			Players: []*replay.PlayerInfo{{
				ToonHandle: "1-S2-1-123",
				Name:       "Rival",
				Aliases:    []replay.Alias{{Name: "Rival", SeenOn: first}},
				UpdatedAt:  first,
			}},
		})
		pool.Enqueue(worker.Job{
			Replay: poolReplay("hash-2"),
			Players: []*replay.PlayerInfo{{
				ToonHandle: "1-S2-1-123",
				Name:       "RivalSmurf",
				Aliases:    []replay.Alias{{Name: "RivalSmurf", SeenOn: second}},
				UpdatedAt:  second,
			}},
		})
		pool.Close()

		info, err := driver.GetPlayerInfo(ctx, "1-S2-1-123")
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Name).To(Equal("RivalSmurf"))
		Expect(info.UpdatedAt).To(Equal(second))

		names := make([]string, 0, len(info.Aliases))
		for _, a := range info.Aliases {
			names = append(names, a.Name)
		}
		Expect(names).To(ConsistOf("Rival", "RivalSmurf"))
	})

	It("publishes a persisted event per stored replay", func() {
		pool := newPool(worker.Config{Driver: driver, Publisher: publisher})

		pool.Enqueue(worker.Job{Replay: poolReplay("hash-1")})
		pool.Close()

		published := publisher.replayEvents()
		Expect(published).To(HaveLen(1))
		evt := published[0]
		Expect(evt.EventType).To(Equal(eventstream.EventTypeReplayPersisted))
		Expect(evt.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(evt.ReplayID).To(Equal("hash-1"))
		Expect(evt.Players).To(Equal([]string{"Nova", "Rival"}))
		Expect(evt.IsNew).To(BeTrue())
		Expect(evt.EventID).NotTo(BeEmpty())
	})

	It("reports replays already stored as not new", func() {
		_, err := driver.PutReplay(ctx, poolReplay("hash-1"))
		Expect(err).NotTo(HaveOccurred())

		pool := newPool(worker.Config{Driver: driver, Publisher: publisher})
		pool.Enqueue(worker.Job{Replay: poolReplay("hash-1")})
		pool.Close()

		published := publisher.replayEvents()
		Expect(published).To(HaveLen(1))
		Expect(published[0].IsNew).To(BeFalse())
	})

	It("drops jobs when the queue is full", func() {
		gated := &gatedDriver{
			Driver:  driver,
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		pool := newPool(worker.Config{Driver: gated, NumWorkers: 1, QueueSize: 1})

		// First job occupies the single worker.
		Expect(pool.Enqueue(worker.Job{Replay: poolReplay("hash-1")})).To(BeTrue())
		Eventually(gated.entered).Should(BeClosed())

		// Second fills the queue; third has nowhere to go.
		Expect(pool.Enqueue(worker.Job{Replay: poolReplay("hash-2")})).To(BeTrue())
		Expect(pool.Enqueue(worker.Job{Replay: poolReplay("hash-3")})).To(BeFalse())

		close(gated.release)
		pool.Close()

		Expect(driver.Count()).To(Equal(2))
	})
})
