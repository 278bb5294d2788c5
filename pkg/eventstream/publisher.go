package eventstream

import "context"

// Publisher publishes coach events to an event stream backend.
type Publisher interface {
	PublishReplay(ctx context.Context, event *ReplayPersistedEvent) error
	PublishSessionClosed(ctx context.Context, event *SessionClosedEvent) error
	Close() error
}
