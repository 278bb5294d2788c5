// Package eventstream publishes coach lifecycle events to an external
// stream for downstream consumers (overlays, dashboards, archival).
package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeReplayPersisted is emitted after a replay passes the
	// filter pipeline and is stored.
	EventTypeReplayPersisted = "coach.replay.persisted"

	// EventTypeSessionClosed is emitted when a coaching session ends.
	EventTypeSessionClosed = "coach.session.closed"
)

// ReplayPersistedEvent is a transport-neutral payload for a stored replay.
type ReplayPersistedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	ReplayID   string   `json:"replay_id"`
	Filename   string   `json:"filename"`
	MapName    string   `json:"map_name"`
	Players    []string `json:"players"`
	GameLength int      `json:"game_length"`
	IsNew      bool     `json:"is_new"`
}

// SessionClosedEvent is a transport-neutral payload for a finished session.
type SessionClosedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	SessionID   string  `json:"session_id"`
	Backend     string  `json:"backend"`
	ThreadCount int     `json:"thread_count"`
	TotalTokens int     `json:"total_tokens"`
	CostUSD     float64 `json:"cost_usd"`
}
