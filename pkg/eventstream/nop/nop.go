// Package nop provides a no-op eventstream publisher used for tests and
// disabled mode.
package nop

import (
	"context"

	"github.com/sc2coach/sc2coach/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishReplay validates input and otherwise does nothing.
func (p *Publisher) PublishReplay(_ context.Context, event *eventstream.ReplayPersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// PublishSessionClosed validates input and otherwise does nothing.
func (p *Publisher) PublishSessionClosed(_ context.Context, event *eventstream.SessionClosedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
