// Package inmemory provides a map-backed store driver for tests and
// development runs without a database.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/session"
	"github.com/sc2coach/sc2coach/pkg/store"
)

// Driver implements store.Driver using in-memory maps.
type Driver struct {
	mu sync.RWMutex

	replays  map[string]*replay.Replay
	players  map[string]*replay.PlayerInfo
	meta     map[string]*replay.Metadata
	sessions map[string]*session.Record
}

// NewDriver creates an empty in-memory store.
func NewDriver() *Driver {
	return &Driver{
		replays:  make(map[string]*replay.Replay),
		players:  make(map[string]*replay.PlayerInfo),
		meta:     make(map[string]*replay.Metadata),
		sessions: make(map[string]*session.Record),
	}
}

// PutReplay upserts by content hash. Returns true for a new insert.
func (d *Driver) PutReplay(_ context.Context, r *replay.Replay) (bool, error) {
	if r == nil {
		return false, errors.New("cannot store nil replay")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, exists := d.replays[r.ID]
	d.replays[r.ID] = r
	return !exists, nil
}

func (d *Driver) GetReplay(_ context.Context, id string) (*replay.Replay, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.replays[id]
	if !ok {
		return nil, store.NotFoundError{Kind: "replay", ID: id}
	}
	return r, nil
}

func (d *Driver) HasReplay(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.replays[id]
	return ok, nil
}

func (d *Driver) MostRecentReplay(ctx context.Context, playerName string) (*replay.Replay, error) {
	replays, err := d.ReplaysForPlayer(ctx, playerName, 1)
	if err != nil {
		return nil, err
	}
	if len(replays) == 0 {
		return nil, store.NotFoundError{Kind: "replay"}
	}
	return replays[0], nil
}

func (d *Driver) ReplaysForPlayer(_ context.Context, playerName string, limit int) ([]*replay.Replay, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*replay.Replay
	for _, r := range d.replays {
		if r.Player(playerName) != nil {
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UnixTimestamp > out[j].UnixTimestamp
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *Driver) PutPlayerInfo(_ context.Context, info *replay.PlayerInfo) (bool, error) {
	if info == nil {
		return false, errors.New("cannot store nil player info")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, exists := d.players[info.ToonHandle]
	d.players[info.ToonHandle] = info
	return !exists, nil
}

func (d *Driver) GetPlayerInfo(_ context.Context, toonHandle string) (*replay.PlayerInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	info, ok := d.players[toonHandle]
	if !ok {
		return nil, store.NotFoundError{Kind: "player", ID: toonHandle}
	}
	return info, nil
}

func (d *Driver) PutMetadata(_ context.Context, meta *replay.Metadata) (bool, error) {
	if meta == nil {
		return false, errors.New("cannot store nil metadata")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, exists := d.meta[meta.ReplayID]
	d.meta[meta.ReplayID] = meta
	return !exists, nil
}

func (d *Driver) GetMetadata(_ context.Context, replayID string) (*replay.Metadata, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	meta, ok := d.meta[replayID]
	if !ok {
		return nil, store.NotFoundError{Kind: "metadata", ID: replayID}
	}
	return meta, nil
}

func (d *Driver) PutSession(_ context.Context, rec *session.Record) error {
	if rec == nil {
		return errors.New("cannot store nil session")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.sessions[rec.ID] = rec
	return nil
}

func (d *Driver) GetSession(_ context.Context, id string) (*session.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.sessions[id]
	if !ok {
		return nil, store.NotFoundError{Kind: "session", ID: id}
	}
	return rec, nil
}

// Count returns the number of stored replays.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.replays)
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
