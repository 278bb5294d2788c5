// Package store defines the document store interface for replays, player
// identities, replay metadata and session records.
//
// All writes are idempotent upserts keyed by the aggregate's own
// identifier. Replays are keyed by content hash, so repeated writes of the
// same file converge on one document.
package store

import (
	"context"

	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/session"
)

// Driver is the document store contract. Implementations live in the
// driver sub-packages (inmemory, sqlite, postgres, mongo).
type Driver interface {
	// PutReplay upserts a replay by its content-derived ID. Returns true
	// if the document was newly inserted, false if an existing document
	// was updated.
	PutReplay(ctx context.Context, r *replay.Replay) (bool, error)

	// GetReplay retrieves a replay by ID. Returns a NotFoundError if absent.
	GetReplay(ctx context.Context, id string) (*replay.Replay, error)

	// HasReplay checks whether a replay exists.
	HasReplay(ctx context.Context, id string) (bool, error)

	// MostRecentReplay returns the newest replay a player appears in.
	MostRecentReplay(ctx context.Context, playerName string) (*replay.Replay, error)

	// ReplaysForPlayer returns replays a player appears in, newest first,
	// capped at limit (limit <= 0 means no cap).
	ReplaysForPlayer(ctx context.Context, playerName string, limit int) ([]*replay.Replay, error)

	// PutPlayerInfo upserts a player identity record by toon handle.
	PutPlayerInfo(ctx context.Context, info *replay.PlayerInfo) (bool, error)

	// GetPlayerInfo retrieves a player identity record by toon handle.
	GetPlayerInfo(ctx context.Context, toonHandle string) (*replay.PlayerInfo, error)

	// PutMetadata upserts replay metadata by replay ID.
	PutMetadata(ctx context.Context, meta *replay.Metadata) (bool, error)

	// GetMetadata retrieves replay metadata by replay ID.
	GetMetadata(ctx context.Context, replayID string) (*replay.Metadata, error)

	// PutSession upserts a session record by its ID. Called repeatedly as
	// the session accumulates threads and usage, so cost survives a crash.
	PutSession(ctx context.Context, rec *session.Record) error

	// GetSession retrieves a session record by ID.
	GetSession(ctx context.Context, id string) (*session.Record, error)

	// Close releases the driver's resources.
	Close() error
}
