// Package mongo provides a MongoDB-backed store driver.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/session"
	"github.com/sc2coach/sc2coach/pkg/store"
)

// Driver implements store.Driver using MongoDB.
type Driver struct {
	client *mongo.Client

	replays  *mongo.Collection
	players  *mongo.Collection
	meta     *mongo.Collection
	sessions *mongo.Collection
}

// NewDriver connects to MongoDB and returns a store backed by the given
// database. The uri is a standard connection string, e.g.
// "mongodb://localhost:27017".
func NewDriver(ctx context.Context, uri, database string) (*Driver, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{
			UseJSONStructTags: true,
			NilSliceAsEmpty:   true,
		})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	return &Driver{
		client:   client,
		replays:  db.Collection("replays"),
		players:  db.Collection("player_info"),
		meta:     db.Collection("replay_metadata"),
		sessions: db.Collection("sessions"),
	}, nil
}

func (d *Driver) PutReplay(ctx context.Context, r *replay.Replay) (bool, error) {
	res, err := d.replays.ReplaceOne(ctx,
		bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to upsert replay: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (d *Driver) GetReplay(ctx context.Context, id string) (*replay.Replay, error) {
	var r replay.Replay
	err := d.replays.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NotFoundError{Kind: "replay", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query replay: %w", err)
	}
	return &r, nil
}

func (d *Driver) HasReplay(ctx context.Context, id string) (bool, error) {
	count, err := d.replays.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to query replay: %w", err)
	}
	return count > 0, nil
}

func (d *Driver) MostRecentReplay(ctx context.Context, playerName string) (*replay.Replay, error) {
	var r replay.Replay
	err := d.replays.FindOne(ctx,
		bson.M{"players.name": playerName},
		options.FindOne().SetSort(bson.D{{Key: "unix_timestamp", Value: -1}}),
	).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NotFoundError{Kind: "replay"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query replay: %w", err)
	}
	return &r, nil
}

func (d *Driver) ReplaysForPlayer(ctx context.Context, playerName string, limit int) ([]*replay.Replay, error) {
	opts := options.Find().SetSort(bson.D{{Key: "unix_timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := d.replays.Find(ctx, bson.M{"players.name": playerName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query replays: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*replay.Replay
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode replays: %w", err)
	}
	return out, nil
}

func (d *Driver) PutPlayerInfo(ctx context.Context, info *replay.PlayerInfo) (bool, error) {
	res, err := d.players.ReplaceOne(ctx,
		bson.M{"_id": info.ToonHandle}, info, options.Replace().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to upsert player info: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (d *Driver) GetPlayerInfo(ctx context.Context, toonHandle string) (*replay.PlayerInfo, error) {
	var info replay.PlayerInfo
	err := d.players.FindOne(ctx, bson.M{"_id": toonHandle}).Decode(&info)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NotFoundError{Kind: "player", ID: toonHandle}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query player info: %w", err)
	}
	return &info, nil
}

func (d *Driver) PutMetadata(ctx context.Context, meta *replay.Metadata) (bool, error) {
	res, err := d.meta.ReplaceOne(ctx,
		bson.M{"_id": meta.ReplayID}, meta, options.Replace().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to upsert metadata: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (d *Driver) GetMetadata(ctx context.Context, replayID string) (*replay.Metadata, error) {
	var meta replay.Metadata
	err := d.meta.FindOne(ctx, bson.M{"_id": replayID}).Decode(&meta)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NotFoundError{Kind: "metadata", ID: replayID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	return &meta, nil
}

func (d *Driver) PutSession(ctx context.Context, rec *session.Record) error {
	_, err := d.sessions.ReplaceOne(ctx,
		bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

func (d *Driver) GetSession(ctx context.Context, id string) (*session.Record, error) {
	var rec session.Record
	err := d.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NotFoundError{Kind: "session", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &rec, nil
}

func (d *Driver) Close() error {
	return d.client.Disconnect(context.Background())
}
