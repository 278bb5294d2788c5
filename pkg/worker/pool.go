// Package worker provides an asynchronous worker pool for persisting
// parsed replays and player identities using the provided store.Driver.
//
// The pool decouples storage and event publication from the watcher's
// hot path so a slow database never backs up replay detection.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/eventstream"
	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/store"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Replay  *replay.Replay
	Players []*replay.PlayerInfo
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting replays.
	Driver store.Driver

	// Publisher is the optional outbound event stream.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes storage jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("replay_id", job.Replay.ID),
			zap.String("map", job.Replay.MapName),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("replay_id", job.Replay.ID),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the watcher has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("storage worker stopped", zap.Uint("worker_id", id))
}

// processJob persists the replay and its player identities, then
// publishes a persisted event if a publisher is configured.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	isNew, err := p.config.Driver.PutReplay(ctx, job.Replay)
	if err != nil {
		p.logger.Error("async replay storage failed",
			zap.String("replay_id", job.Replay.ID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("replay stored",
		zap.String("replay_id", job.Replay.ID),
		zap.String("map", job.Replay.MapName),
		zap.Bool("is_new", isNew),
	)

	for _, info := range job.Players {
		p.upsertPlayerInfo(ctx, info)
	}

	if p.config.Publisher != nil {
		p.publishReplay(ctx, job.Replay, isNew)
	}
}

// upsertPlayerInfo merges a freshly observed identity into any existing
// record so alias history accumulates across replays.
func (p *Pool) upsertPlayerInfo(ctx context.Context, info *replay.PlayerInfo) {
	existing, err := p.config.Driver.GetPlayerInfo(ctx, info.ToonHandle)
	switch {
	case store.IsNotFound(err):
		// First sighting, store as-is.
	case err != nil:
		p.logger.Warn("player info lookup failed",
			zap.String("toon_handle", info.ToonHandle),
			zap.Error(err),
		)
		return
	default:
		existing.AddAlias(info.Name, info.UpdatedAt)
		existing.Name = info.Name
		existing.UpdatedAt = info.UpdatedAt
		info = existing
	}

	if _, err := p.config.Driver.PutPlayerInfo(ctx, info); err != nil {
		p.logger.Warn("player info storage failed",
			zap.String("toon_handle", info.ToonHandle),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("player info stored",
		zap.String("toon_handle", info.ToonHandle),
		zap.String("name", info.Name),
	)
}

func (p *Pool) publishReplay(ctx context.Context, rep *replay.Replay, isNew bool) {
	names := make([]string, 0, len(rep.Players))
	for _, player := range rep.Players {
		names = append(names, player.Name)
	}

	event := &eventstream.ReplayPersistedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeReplayPersisted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		ReplayID:      rep.ID,
		Filename:      rep.Filename,
		MapName:       rep.MapName,
		Players:       names,
		GameLength:    rep.GameLength,
		IsNew:         isNew,
	}

	if err := p.config.Publisher.PublishReplay(ctx, event); err != nil {
		p.logger.Warn("event publication failed",
			zap.String("replay_id", rep.ID),
			zap.Error(err),
		)
	}
}
