package gameinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultPulseBaseURL is the public sc2pulse API.
const DefaultPulseBaseURL = "https://sc2pulse.nephest.com/sc2/api"

// RaceSummary is one ladder summary row for a player character.
type RaceSummary struct {
	Race       string
	Games      int
	RatingMax  int
	RatingLast int
	LeagueMax  int
	GlobalRank int
}

// PulseClient queries ladder history from the sc2pulse community API.
type PulseClient struct {
	baseURL string
	httpc   *http.Client
}

// NewPulseClient creates a pulse API client. An empty baseURL uses the
// public instance.
func NewPulseClient(baseURL string) *PulseClient {
	if baseURL == "" {
		baseURL = DefaultPulseBaseURL
	}
	return &PulseClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 5 * time.Second},
	}
}

type pulseSearchRow struct {
	RatingMax    int `json:"ratingMax"`
	LeagueMax    int `json:"leagueMax"`
	GlobalRank   int `json:"globalRank"`
	CurrentStats struct {
		Rating      int `json:"rating"`
		GamesPlayed int `json:"gamesPlayed"`
	} `json:"currentStats"`
	Members struct {
		Character struct {
			Name string `json:"name"`
		} `json:"character"`
		TerranGamesPlayed  int `json:"terranGamesPlayed"`
		ProtossGamesPlayed int `json:"protossGamesPlayed"`
		ZergGamesPlayed    int `json:"zergGamesPlayed"`
		RandomGamesPlayed  int `json:"randomGamesPlayed"`
	} `json:"members"`
}

// SearchSummaries looks a player name up and reports one summary row per
// race they ladder with. The name match is case-insensitive on the part
// before the battle tag discriminator.
func (c *PulseClient) SearchSummaries(ctx context.Context, name string) ([]RaceSummary, error) {
	endpoint := c.baseURL + "/character/search?term=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pulse API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pulse API returned %s", resp.Status)
	}

	var rows []pulseSearchRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding pulse response: %w", err)
	}

	var out []RaceSummary
	for _, row := range rows {
		charName, _, _ := strings.Cut(row.Members.Character.Name, "#")
		if !strings.EqualFold(charName, name) {
			continue
		}

		races := []struct {
			race  string
			games int
		}{
			{"Terran", row.Members.TerranGamesPlayed},
			{"Protoss", row.Members.ProtossGamesPlayed},
			{"Zerg", row.Members.ZergGamesPlayed},
			{"Random", row.Members.RandomGamesPlayed},
		}
		for _, r := range races {
			if r.games == 0 {
				continue
			}
			out = append(out, RaceSummary{
				Race:       r.race,
				Games:      r.games,
				RatingMax:  row.RatingMax,
				RatingLast: row.CurrentStats.Rating,
				LeagueMax:  row.LeagueMax,
				GlobalRank: row.GlobalRank,
			})
		}
	}
	return out, nil
}
