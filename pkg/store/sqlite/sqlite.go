// Package sqlite provides a SQLite-backed store driver.
//
// Documents are stored as JSON in a single column, with a side table
// mapping player names to replay IDs so player lookups don't scan every
// document.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/session"
	"github.com/sc2coach/sc2coach/pkg/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS replays (
	id             TEXT PRIMARY KEY,
	unix_timestamp INTEGER NOT NULL,
	doc            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS replay_players (
	replay_id TEXT NOT NULL REFERENCES replays(id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	PRIMARY KEY (replay_id, name)
);
CREATE INDEX IF NOT EXISTS idx_replay_players_name ON replay_players(name);

CREATE TABLE IF NOT EXISTS player_info (
	toon_handle TEXT PRIMARY KEY,
	doc         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS replay_metadata (
	replay_id TEXT PRIMARY KEY,
	doc       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id  TEXT PRIMARY KEY,
	doc TEXT NOT NULL
);
`

// Driver implements store.Driver using SQLite via mattn/go-sqlite3.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

func (d *Driver) PutReplay(ctx context.Context, r *replay.Replay) (bool, error) {
	doc, err := json.Marshal(r)
	if err != nil {
		return false, fmt.Errorf("failed to marshal replay: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM replays WHERE id = ?", r.ID).Scan(&existing)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing replay: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO replays (id, unix_timestamp, doc) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET unix_timestamp = excluded.unix_timestamp, doc = excluded.doc`,
		r.ID, r.UnixTimestamp, string(doc))
	if err != nil {
		return false, fmt.Errorf("failed to upsert replay: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM replay_players WHERE replay_id = ?", r.ID); err != nil {
		return false, fmt.Errorf("failed to clear player index: %w", err)
	}
	for _, p := range r.Players {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO replay_players (replay_id, name) VALUES (?, ?)",
			r.ID, p.Name)
		if err != nil {
			return false, fmt.Errorf("failed to index player %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit replay: %w", err)
	}
	return existing == 0, nil
}

func (d *Driver) GetReplay(ctx context.Context, id string) (*replay.Replay, error) {
	var doc string
	err := d.db.QueryRowContext(ctx, "SELECT doc FROM replays WHERE id = ?", id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, store.NotFoundError{Kind: "replay", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query replay: %w", err)
	}

	var r replay.Replay
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal replay: %w", err)
	}
	return &r, nil
}

func (d *Driver) HasReplay(ctx context.Context, id string) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM replays WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query replay: %w", err)
	}
	return count > 0, nil
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

func (d *Driver) ReplaysForPlayer(ctx context.Context, playerName string, limit int) ([]*replay.Replay, error) {
	query := `SELECT r.doc FROM replays r
		JOIN replay_players p ON p.replay_id = r.id
		WHERE p.name = ?
		ORDER BY r.unix_timestamp DESC`
	args := []any{playerName}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query replays: %w", err)
	}
	defer rows.Close()

	var out []*replay.Replay
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan replay: %w", err)
		}
		var r replay.Replay
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal replay: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (d *Driver) PutPlayerInfo(ctx context.Context, info *replay.PlayerInfo) (bool, error) {
	return d.upsertDoc(ctx, "player_info", "toon_handle", info.ToonHandle, info)
}

func (d *Driver) GetPlayerInfo(ctx context.Context, toonHandle string) (*replay.PlayerInfo, error) {
	var info replay.PlayerInfo
	if err := d.getDoc(ctx, "player_info", "toon_handle", "player", toonHandle, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (d *Driver) PutMetadata(ctx context.Context, meta *replay.Metadata) (bool, error) {
	return d.upsertDoc(ctx, "replay_metadata", "replay_id", meta.ReplayID, meta)
}

func (d *Driver) GetMetadata(ctx context.Context, replayID string) (*replay.Metadata, error) {
	var meta replay.Metadata
	if err := d.getDoc(ctx, "replay_metadata", "replay_id", "metadata", replayID, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (d *Driver) PutSession(ctx context.Context, rec *session.Record) error {
	_, err := d.upsertDoc(ctx, "sessions", "id", rec.ID, rec)
	return err
}

func (d *Driver) GetSession(ctx context.Context, id string) (*session.Record, error) {
	var rec session.Record
	if err := d.getDoc(ctx, "sessions", "id", "session", id, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *Driver) upsertDoc(ctx context.Context, table, keyCol, key string, v any) (bool, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("failed to marshal document: %w", err)
	}

	var existing int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", table, keyCol)
	if err := d.db.QueryRowContext(ctx, query, key).Scan(&existing); err != nil {
		return false, fmt.Errorf("failed to check for existing document: %w", err)
	}

	query = fmt.Sprintf(
		"INSERT INTO %s (%s, doc) VALUES (?, ?) ON CONFLICT(%s) DO UPDATE SET doc = excluded.doc",
		table, keyCol, keyCol)
	if _, err := d.db.ExecContext(ctx, query, key, string(doc)); err != nil {
		return false, fmt.Errorf("failed to upsert document: %w", err)
	}
	return existing == 0, nil
}

func (d *Driver) getDoc(ctx context.Context, table, keyCol, kind, key string, v any) error {
	var doc string
	query := fmt.Sprintf("SELECT doc FROM %s WHERE %s = ?", table, keyCol)
	err := d.db.QueryRowContext(ctx, query, key).Scan(&doc)
	if err == sql.ErrNoRows {
		return store.NotFoundError{Kind: kind, ID: key}
	}
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", kind, err)
	}
	return json.Unmarshal([]byte(doc), v)
}

func (d *Driver) Close() error {
	return d.db.Close()
}
