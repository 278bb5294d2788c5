package replay

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
)

// GameEvent is a single low-level event from the replay's chronological
// event stream. PlayerSID is nil for events with no owning player (game
// setup, global triggers).
type GameEvent struct {
	Second     int    `json:"second"`
	Name       string `json:"name"`
	PlayerSID  *int   `json:"player_sid,omitempty"`
	ObjectName string `json:"object_name,omitempty"`
	TargetName string `json:"target_name,omitempty"`
	Ability    string `json:"ability,omitempty"`
}

// RawPlayer is one participant as exposed by the parser, before derived
// statistics are attached.
type RawPlayer struct {
	SID           int
	PID           int
	Name          string
	ClanTag       string
	PickRace      string
	PlayRace      string
	Result        string
	AvgAPM        float64
	ScaledRating  int
	HighestLeague int
	ToonHandle    string
	ClockPosition int
	Color         string
	BuildOrder    []BuildOrder
	UnitsLost     []UnitLoss
}

// RawReplay is the parser collaborator's output: replay metadata plus the
// full chronological low-level event stream. Derived statistics are computed
// on top of this by the stats package.
type RawReplay struct {
	FileHash      string
	Filename      string
	MapName       string
	GameType      string
	Category      string
	Region        string
	IsLadder      bool
	GameLength    int
	RealLength    int
	Date          time.Time
	UnixTimestamp int64
	Players       []RawPlayer
	Messages      []Message
	Events        []GameEvent
}

// PlayerMessages returns the chat messages sent by the player with the
// given sid.
func (r *RawReplay) PlayerMessages(sid int) []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.PID == sid {
			out = append(out, m)
		}
	}
	return out
}

// Parser is the replay parsing collaborator. Implementations decode the
// binary replay format; this repository only consumes the result.
type Parser interface {
	// Load parses the replay file at path into a RawReplay. The returned
	// FileHash must be the SHA-256 hex digest of the file content.
	Load(path string) (*RawReplay, error)
}

// HashFile computes the content-derived replay ID for a file on disk.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening replay file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing replay file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FromRaw converts a parsed RawReplay into the typed, persistable Replay.
// Per-player worker stats and the match-level GG flag are expected to be
// attached by the caller (see stats.Attach).
func FromRaw(raw *RawReplay) *Replay {
	players := make([]Player, 0, len(raw.Players))
	for _, p := range raw.Players {
		players = append(players, Player{
			SID:           p.SID,
			PID:           p.PID,
			Name:          p.Name,
			ClanTag:       p.ClanTag,
			PickRace:      p.PickRace,
			PlayRace:      p.PlayRace,
			Result:        p.Result,
			AvgAPM:        p.AvgAPM,
			ScaledRating:  p.ScaledRating,
			HighestLeague: p.HighestLeague,
			ToonHandle:    p.ToonHandle,
			ClockPosition: p.ClockPosition,
			Color:         p.Color,
			BuildOrder:    p.BuildOrder,
			UnitsLost:     p.UnitsLost,
			Messages:      playerMessages(raw.Messages, p.SID),
		})
	}

	return &Replay{
		ID:            raw.FileHash,
		Filename:      raw.Filename,
		MapName:       raw.MapName,
		GameType:      raw.GameType,
		Region:        raw.Region,
		IsLadder:      raw.IsLadder,
		GameLength:    raw.GameLength,
		RealLength:    raw.RealLength,
		Date:          raw.Date,
		UnixTimestamp: raw.UnixTimestamp,
		Players:       players,
		Messages:      raw.Messages,
	}
}

func playerMessages(messages []Message, sid int) []Message {
	out := []Message{}
	for _, m := range messages {
		if m.PID == sid {
			out = append(out, m)
		}
	}
	return out
}
