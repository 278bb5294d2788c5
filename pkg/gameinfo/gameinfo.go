// Package gameinfo reads live game state from the StarCraft II client's
// local HTTP API, plus opponent history from the community pulse API.
//
// Both clients are enrichment sources: callers treat failures as missing
// information, not fatal errors.
package gameinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultBaseURL is the game client API address on the local machine.
const DefaultBaseURL = "http://127.0.0.1:6119"

// GamePlayer is one slot in the running game.
type GamePlayer struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Race   string `json:"race"`
	Result string `json:"result"`
}

// GameInfo is the game client's /game response.
type GameInfo struct {
	IsReplay    bool         `json:"isReplay"`
	DisplayTime float64      `json:"displayTime"`
	Players     []GamePlayer `json:"players"`
}

// UIInfo is the game client's /ui response.
type UIInfo struct {
	ActiveScreens []string `json:"activeScreens"`
}

// InGame reports whether the client is on no menu screen.
func (u UIInfo) InGame() bool {
	return len(u.ActiveScreens) == 0
}

// Client talks to the local game client HTTP API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a game client reader. An empty baseURL uses the
// default local address.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 2 * time.Second},
	}
}

// Game returns the current game state.
func (c *Client) Game(ctx context.Context) (*GameInfo, error) {
	var info GameInfo
	if err := c.get(ctx, "/game", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UI returns the current screen state.
func (c *Client) UI(ctx context.Context) (*UIInfo, error) {
	var info UIInfo
	if err := c.get(ctx, "/ui", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("game client unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("game client returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
