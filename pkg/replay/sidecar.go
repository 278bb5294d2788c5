package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SidecarParser implements Parser by reading a JSON export placed next to
// the replay file by an external decoder (replay.SC2Replay.json next to
// replay.SC2Replay). The binary format itself is never decoded here; the
// replay ID is still derived from the binary file's content hash so the
// same replay maps to the same document regardless of which machine
// exported it.
type SidecarParser struct{}

// NewSidecarParser returns a Parser reading JSON sidecar exports.
func NewSidecarParser() *SidecarParser {
	return &SidecarParser{}
}

// sidecarDoc is the exporter's wire format. It mirrors RawReplay with
// snake_case keys; unknown keys are ignored so exporter versions can add
// fields freely.
type sidecarDoc struct {
	MapName       string          `json:"map_name"`
	GameType      string          `json:"game_type"`
	Category      string          `json:"category"`
	Region        string          `json:"region"`
	IsLadder      bool            `json:"is_ladder"`
	GameLength    int             `json:"game_length"`
	RealLength    int             `json:"real_length"`
	UnixTimestamp int64           `json:"unix_timestamp"`
	Players       []sidecarPlayer `json:"players"`
	Messages      []Message       `json:"messages"`
	Events        []GameEvent     `json:"events"`
}

type sidecarPlayer struct {
	SID           int          `json:"sid"`
	PID           int          `json:"pid"`
	Name          string       `json:"name"`
	ClanTag       string       `json:"clan_tag"`
	PickRace      string       `json:"pick_race"`
	PlayRace      string       `json:"play_race"`
	Result        string       `json:"result"`
	AvgAPM        float64      `json:"avg_apm"`
	ScaledRating  int          `json:"scaled_rating"`
	HighestLeague int          `json:"highest_league"`
	ToonHandle    string       `json:"toon_handle"`
	ClockPosition int          `json:"clock_position"`
	Color         string       `json:"color"`
	BuildOrder    []BuildOrder `json:"build_order"`
	UnitsLost     []UnitLoss   `json:"units_lost"`
}

// SidecarPath returns the expected sidecar location for a replay file.
func SidecarPath(replayPath string) string {
	return replayPath + ".json"
}

// Load reads the sidecar export for the replay at path. The replay file
// itself must exist; its SHA-256 digest becomes the FileHash.
func (p *SidecarParser) Load(path string) (*RawReplay, error) {
	hash, err := HashFile(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(SidecarPath(path))
	if err != nil {
		return nil, fmt.Errorf("reading replay sidecar: %w", err)
	}

	var doc sidecarDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding replay sidecar: %w", err)
	}

	raw := &RawReplay{
		FileHash:      hash,
		Filename:      filepath.Base(path),
		MapName:       doc.MapName,
		GameType:      doc.GameType,
		Category:      doc.Category,
		Region:        doc.Region,
		IsLadder:      doc.IsLadder,
		GameLength:    doc.GameLength,
		RealLength:    doc.RealLength,
		Date:          time.Unix(doc.UnixTimestamp, 0).UTC(),
		UnixTimestamp: doc.UnixTimestamp,
		Messages:      doc.Messages,
		Events:        doc.Events,
	}

	raw.Players = make([]RawPlayer, 0, len(doc.Players))
	for _, sp := range doc.Players {
		raw.Players = append(raw.Players, RawPlayer{
			SID:           sp.SID,
			PID:           sp.PID,
			Name:          sp.Name,
			ClanTag:       sp.ClanTag,
			PickRace:      sp.PickRace,
			PlayRace:      sp.PlayRace,
			Result:        sp.Result,
			AvgAPM:        sp.AvgAPM,
			ScaledRating:  sp.ScaledRating,
			HighestLeague: sp.HighestLeague,
			ToonHandle:    sp.ToonHandle,
			ClockPosition: sp.ClockPosition,
			Color:         sp.Color,
			BuildOrder:    sp.BuildOrder,
			UnitsLost:     sp.UnitsLost,
		})
	}

	return raw, nil
}
