// Package replay defines the typed data model for a parsed StarCraft II
// replay and the contract a replay parser has to satisfy.
//
// A Replay is immutable once created. Its ID is the SHA-256 hex digest of the
// replay file's content, so persisting the same file twice is an idempotent
// upsert rather than a duplicate insert.
package replay

import "time"

// Match results as reported by the parser.
const (
	ResultWin       = "Win"
	ResultLoss      = "Loss"
	ResultTie       = "Tie"
	ResultUndecided = "Undecided"
)

// IDLength is the length of a content-derived replay ID (SHA-256, hex).
const IDLength = 64

// Message is a single in-game chat message.
type Message struct {
	PID      int    `json:"pid"`
	Second   int    `json:"second"`
	Text     string `json:"text"`
	IsPublic bool   `json:"is_public"`
}

// BuildOrder is one production or construction action in a player's build.
// Time is the in-game clock in "MM:SS" format.
type BuildOrder struct {
	Frame           int    `json:"frame"`
	Time            string `json:"time"`
	Name            string `json:"name"`
	Supply          int    `json:"supply"`
	IsWorker        bool   `json:"is_worker"`
	IsChronoBoosted bool   `json:"is_chronoboosted"`
}

// UnitLoss records a unit a player lost, and to whom.
type UnitLoss struct {
	Frame  int    `json:"frame"`
	Time   string `json:"time"`
	Name   string `json:"name"`
	Killer int    `json:"killer"`
}

// WorkerStats holds per-player derived worker handling scores. Both are
// counts, not booleans: split counts selections of workers sent back to
// mining within the first two seconds, micro counts the same pattern later
// in the early game.
type WorkerStats struct {
	WorkerSplit int `json:"worker_split"`
	WorkerMicro int `json:"worker_micro"`
}

// ReplayStats holds match-level derived flags.
type ReplayStats struct {
	LoserDoesGG bool `json:"loserDoesGG"`
}

// Player is one participant's data within a Replay.
type Player struct {
	SID           int     `json:"sid"`
	PID           int     `json:"pid"`
	Name          string  `json:"name"`
	ClanTag       string  `json:"clan_tag,omitempty"`
	PickRace      string  `json:"pick_race"`
	PlayRace      string  `json:"play_race"`
	Result        string  `json:"result"`
	AvgAPM        float64 `json:"avg_apm"`
	ScaledRating  int     `json:"scaled_rating"`
	HighestLeague int     `json:"highest_league"`
	ToonHandle    string  `json:"toon_handle"`
	ClockPosition int     `json:"clock_position,omitempty"`
	Color         string  `json:"color,omitempty"`

	BuildOrder []BuildOrder `json:"build_order"`
	UnitsLost  []UnitLoss   `json:"units_lost"`
	Messages   []Message    `json:"messages"`
	Stats      WorkerStats  `json:"stats"`
}

// Replay is the immutable record of one completed match.
type Replay struct {
	ID            string      `json:"_id"`
	Filename      string      `json:"filename"`
	MapName       string      `json:"map_name"`
	GameType      string      `json:"game_type"`
	Region        string      `json:"region"`
	IsLadder      bool        `json:"is_ladder"`
	GameLength    int         `json:"game_length"`
	RealLength    int         `json:"real_length"`
	Date          time.Time   `json:"date"`
	UnixTimestamp int64       `json:"unix_timestamp"`
	Players       []Player    `json:"players"`
	Messages      []Message   `json:"messages"`
	Stats         ReplayStats `json:"stats"`
}

// Player returns the participant with the given name, or nil.
func (r *Replay) Player(name string) *Player {
	for i := range r.Players {
		if r.Players[i].Name == name {
			return &r.Players[i]
		}
	}
	return nil
}

// Opponent returns the participant that is not the given name, or nil.
func (r *Replay) Opponent(name string) *Player {
	for i := range r.Players {
		if r.Players[i].Name != name {
			return &r.Players[i]
		}
	}
	return nil
}

// Winner returns the winning participant, or nil for ties and undecided
// matches.
func (r *Replay) Winner() *Player {
	for i := range r.Players {
		if r.Players[i].Result == ResultWin {
			return &r.Players[i]
		}
	}
	return nil
}
