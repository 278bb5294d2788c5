package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
	"github.com/sc2coach/sc2coach/pkg/events"
	"github.com/sc2coach/sc2coach/pkg/gameinfo"
	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/replay/projection"
	"github.com/sc2coach/sc2coach/pkg/store"
)

const (
	// queryBuildOrderLimit bounds build orders in query results, in
	// game seconds.
	queryBuildOrderLimit = 600

	// queryDefaultLimit caps how many replays one query returns.
	queryDefaultLimit = 5
)

// Builtins wires the standard tool set against its collaborators and
// returns the populated registry.
func Builtins(driver store.Driver, game *gameinfo.Client, queue *events.Queue, logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	RegisterQueryReplays(r, driver)
	RegisterGetCurrentGameInfo(r, game)
	RegisterAddMetadata(r, driver)
	RegisterAddPlayerTags(r, driver)
	RegisterCastReplay(r, driver, queue)
	return r
}

// RegisterQueryReplays adds the replay lookup tool.
func RegisterQueryReplays(r *Registry, driver store.Driver) {
	def := assistant.Definition{
		Name:        "query_replays",
		Description: "Look up recent replays a player appears in. Returns projected replay documents, newest first.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"player_name": map[string]any{
					"type":        "string",
					"description": "In-game player name to search for.",
				},
				"limit": map[string]any{
					"type":        "number",
					"description": "Maximum number of replays to return (default 5).",
				},
			},
			"required": []string{"player_name"},
		},
	}

	r.Register(def, func(ctx context.Context, args map[string]any) (string, error) {
		name, err := stringArg(args, "player_name")
		if err != nil {
			return "", err
		}
		limit, err := intArg(args, "limit", queryDefaultLimit)
		if err != nil {
			return "", err
		}

		replays, err := driver.ReplaysForPlayer(ctx, name, limit)
		if err != nil {
			return "", fmt.Errorf("querying replays: %w", err)
		}
		if len(replays) == 0 {
			return fmt.Sprintf("no replays found for player %q", name), nil
		}

		docs := make([]string, 0, len(replays))
		for _, rep := range replays {
			doc, err := projection.ProjectJSON(rep, projection.DefaultFields, queryBuildOrderLimit, false)
			if err != nil {
				return "", fmt.Errorf("projecting replay %s: %w", rep.ID, err)
			}
			docs = append(docs, string(doc))
		}
		return "[" + strings.Join(docs, ",") + "]", nil
	})
}

// RegisterGetCurrentGameInfo adds the live game state tool.
func RegisterGetCurrentGameInfo(r *Registry, game *gameinfo.Client) {
	def := assistant.Definition{
		Name:        "get_current_game_info",
		Description: "Read the running game's clock and player slots from the local game client.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}

	r.Register(def, func(ctx context.Context, _ map[string]any) (string, error) {
		info, err := game.Game(ctx)
		if err != nil {
			return "", fmt.Errorf("reading game client: %w", err)
		}
		doc, err := json.Marshal(info)
		if err != nil {
			return "", err
		}
		return string(doc), nil
	})
}

// RegisterAddMetadata adds the replay annotation tool.
func RegisterAddMetadata(r *Registry, driver store.Driver) {
	def := assistant.Definition{
		Name:        "add_metadata",
		Description: "Attach a description and tags to a stored replay.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"replay_id": map[string]any{
					"type":        "string",
					"description": "Content hash of the replay.",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Free-form note about the game.",
				},
				"tags": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Short labels, e.g. build names.",
				},
			},
			"required": []string{"replay_id"},
		},
	}

	r.Register(def, func(ctx context.Context, args map[string]any) (string, error) {
		replayID, err := stringArg(args, "replay_id")
		if err != nil {
			return "", err
		}
		tags, err := stringsArg(args, "tags")
		if err != nil {
			return "", err
		}
		description, _ := args["description"].(string)

		meta, err := driver.GetMetadata(ctx, replayID)
		if store.IsNotFound(err) {
			meta = &replay.Metadata{ReplayID: replayID}
		} else if err != nil {
			return "", fmt.Errorf("loading metadata: %w", err)
		}

		if description != "" {
			meta.Description = description
		}
		meta.AddTags(tags)

		if _, err := driver.PutMetadata(ctx, meta); err != nil {
			return "", fmt.Errorf("saving metadata: %w", err)
		}
		return fmt.Sprintf("metadata saved for replay %s", replayID), nil
	})
}

// RegisterAddPlayerTags adds the player annotation tool.
func RegisterAddPlayerTags(r *Registry, driver store.Driver) {
	def := assistant.Definition{
		Name:        "add_player_tags",
		Description: "Attach tags to a known player identity, e.g. playstyle notes.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"toon_handle": map[string]any{
					"type":        "string",
					"description": "The player's toon handle.",
				},
				"tags": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Labels to add.",
				},
			},
			"required": []string{"toon_handle", "tags"},
		},
	}

	r.Register(def, func(ctx context.Context, args map[string]any) (string, error) {
		toon, err := stringArg(args, "toon_handle")
		if err != nil {
			return "", err
		}
		tags, err := stringsArg(args, "tags")
		if err != nil {
			return "", err
		}
		if len(tags) == 0 {
			return "", fmt.Errorf("argument %q must not be empty", "tags")
		}

		info, err := driver.GetPlayerInfo(ctx, toon)
		if err != nil {
			return "", fmt.Errorf("loading player info: %w", err)
		}

		for _, tag := range tags {
			if !slices.Contains(info.Tags, tag) {
				info.Tags = append(info.Tags, tag)
			}
		}
		info.UpdatedAt = time.Now().UTC()

		if _, err := driver.PutPlayerInfo(ctx, info); err != nil {
			return "", fmt.Errorf("saving player info: %w", err)
		}
		return fmt.Sprintf("tags saved for player %s", info.Name), nil
	})
}

// RegisterCastReplay adds the replay casting trigger.
func RegisterCastReplay(r *Registry, driver store.Driver, queue *events.Queue) {
	def := assistant.Definition{
		Name:        "cast_replay",
		Description: "Queue a stored replay for live commentary.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"replay_id": map[string]any{
					"type":        "string",
					"description": "Content hash of the replay to cast.",
				},
			},
			"required": []string{"replay_id"},
		},
	}

	r.Register(def, func(ctx context.Context, args map[string]any) (string, error) {
		replayID, err := stringArg(args, "replay_id")
		if err != nil {
			return "", err
		}

		rep, err := driver.GetReplay(ctx, replayID)
		if err != nil {
			return "", fmt.Errorf("loading replay: %w", err)
		}

		if !queue.Put(events.CastReplay{Replay: rep}) {
			return "", fmt.Errorf("event queue full, cast not scheduled")
		}
		return fmt.Sprintf("replay %s queued for casting", replayID), nil
	})
}
