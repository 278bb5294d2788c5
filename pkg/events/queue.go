package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

const defaultQueueSize = 64

// ErrQueueClosed is returned by Next after Close drains the queue.
var ErrQueueClosed = errors.New("event queue closed")

// Queue is a bounded FIFO of session events. Producers never block: an
// event offered to a full queue is dropped and logged, so a stalled
// consumer can't back up the watcher or the chat listeners.
type Queue struct {
	ch     chan Event
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue with the given capacity (0 uses the default).
func NewQueue(size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{
		ch:     make(chan Event, size),
		logger: logger,
	}
}

// Put offers an event to the queue. Returns true if enqueued, false if
// the queue was closed or full and the event was dropped. Producers may
// keep calling Put during shutdown while Close races them.
func (q *Queue) Put(evt Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.logger.Debug("event dropped, queue closed", zap.String("kind", evt.Kind()))
		return false
	}

	select {
	case q.ch <- evt:
		q.logger.Debug("event queued", zap.String("kind", evt.Kind()))
		return true
	default:
		q.logger.Error("event dropped, queue full", zap.String("kind", evt.Kind()))
		return false
	}
}

// Next blocks until an event is available, the context is canceled, or
// the queue is closed and drained.
func (q *Queue) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case evt, ok := <-q.ch:
		if !ok {
			return nil, ErrQueueClosed
		}
		return evt, nil
	}
}

// Close stops accepting events. Events already queued can still be
// consumed via Next until the queue is drained. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
