// Package projection produces size-bounded, field-filtered document views
// of a replay for grounding a conversational backend.
//
// The backend has a hard context-size ceiling, so the projector drops
// high-volume, low-information detail (worker production spam, late-game
// build order entries) while keeping everything structurally important.
package projection

import (
	"encoding/json"
	"fmt"

	"github.com/sc2coach/sc2coach/pkg/replay"
)

// Fields is a sparse field-selection document: dot-path keys naming the
// fields to include in a projection.
type Fields map[string]bool

// DefaultFields is the projection used for conversation grounding. Raw
// events, supply curves and unit losses are deliberately absent.
var DefaultFields = Fields{
	"_id":                                  true,
	"date":                                 true,
	"game_length":                          true,
	"map_name":                             true,
	"players.avg_apm":                      true,
	"players.highest_league":               true,
	"players.name":                         true,
	"players.messages":                     true,
	"players.pick_race":                    true,
	"players.pid":                          true,
	"players.play_race":                    true,
	"players.result":                       true,
	"players.scaled_rating":                true,
	"players.stats":                        true,
	"players.toon_handle":                  true,
	"players.build_order.time":             true,
	"players.build_order.name":             true,
	"players.build_order.supply":           true,
	"players.build_order.is_chronoboosted": true,
	"real_length":                          true,
	"stats":                                true,
	"unix_timestamp":                       true,
}

// includeTree is the nested form of a Fields spec. An empty subtree means
// "include the whole value".
type includeTree map[string]includeTree

// buildTree converts dot-path keys into a nested include tree. List-typed
// fields need no special wrapping: Apply descends into every element of a
// list with the same subtree.
func buildTree(fields Fields) includeTree {
	tree := includeTree{}
	for path, include := range fields {
		if !include {
			continue
		}
		node := tree
		rest := path
		for {
			key, tail, more := cutPath(rest)
			child, ok := node[key]
			if !ok || child == nil {
				child = includeTree{}
				node[key] = child
			}
			if !more {
				break
			}
			node = child
			rest = tail
		}
	}
	return tree
}

func cutPath(path string) (head, tail string, more bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:], true
		}
	}
	return path, "", false
}

// Project returns the replay as a nested document containing only the
// included fields. BuildOrder entries are dropped when their in-game time
// exceeds limit seconds (limit <= 0 means no time window), or when they
// produce a worker without chrono boost and includeWorkers is false.
// Exclusion is index-based: disqualified entries vanish, everything else
// keeps its order.
func Project(r *replay.Replay, fields Fields, limit int, includeWorkers bool) (map[string]any, error) {
	doc, err := toDoc(r)
	if err != nil {
		return nil, err
	}

	if err := filterBuildOrders(r, doc, limit, includeWorkers); err != nil {
		return nil, err
	}

	return apply(buildTree(fields), doc).(map[string]any), nil
}

// ProjectJSON is Project marshaled to JSON.
func ProjectJSON(r *replay.Replay, fields Fields, limit int, includeWorkers bool) ([]byte, error) {
	doc, err := Project(r, fields, limit, includeWorkers)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// ProjectJSONBudget projects with progressively tighter time windows until
// the payload fits maxBytes. Returns the last attempt even when it still
// exceeds the budget, so callers always get something to ground on.
func ProjectJSONBudget(r *replay.Replay, fields Fields, limit int, includeWorkers bool, maxBytes int) ([]byte, error) {
	for {
		data, err := ProjectJSON(r, fields, limit, includeWorkers)
		if err != nil {
			return nil, err
		}
		if len(data) <= maxBytes || limit <= 60 {
			return data, nil
		}
		limit /= 2
	}
}

func toDoc(r *replay.Replay) (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling replay: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling replay document: %w", err)
	}
	return doc, nil
}

// filterBuildOrders rewrites each player's build_order list in the
// document, dropping disqualified entries by index. Entries that survive
// but are not chrono-boosted lose the is_chronoboosted field itself, which
// keeps the payload free of repeated false flags.
func filterBuildOrders(r *replay.Replay, doc map[string]any, limit int, includeWorkers bool) error {
	players, ok := doc["players"].([]any)
	if !ok {
		return nil
	}

	for pi := range r.Players {
		if pi >= len(players) {
			break
		}
		player, ok := players[pi].(map[string]any)
		if !ok {
			continue
		}
		rawList, ok := player["build_order"].([]any)
		if !ok {
			continue
		}

		kept := make([]any, 0, len(rawList))
		for i, entry := range r.Players[pi].BuildOrder {
			if i >= len(rawList) {
				break
			}

			if limit > 0 {
				secs, err := replay.Time2Secs(entry.Time)
				if err != nil {
					return fmt.Errorf("build order entry %d of player %d: %w", i, pi, err)
				}
				if secs > limit {
					continue
				}
			}
			if !includeWorkers && entry.IsWorker && !entry.IsChronoBoosted {
				continue
			}

			item := rawList[i]
			if !entry.IsChronoBoosted {
				if m, ok := item.(map[string]any); ok {
					delete(m, "is_chronoboosted")
				}
			}
			kept = append(kept, item)
		}
		player["build_order"] = kept
	}
	return nil
}

// apply prunes value down to the include tree. Empty subtrees include the
// whole value; lists are filtered per element.
func apply(tree includeTree, value any) any {
	if len(tree) == 0 {
		return value
	}

	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(tree))
		for key, subtree := range tree {
			child, ok := v[key]
			if !ok {
				continue
			}
			out[key] = apply(subtree, child)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, apply(tree, item))
		}
		return out
	default:
		return value
	}
}
