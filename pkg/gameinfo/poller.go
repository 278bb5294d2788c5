package gameinfo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/events"
)

const (
	defaultPollInterval = 2 * time.Second

	// maxStartClock gates game-start detection to the opening seconds so
	// attaching to a game already in progress stays silent.
	maxStartClock = 30.0
)

// Poller watches the local game client and emits a GameStart event when
// the student enters a fresh match. The client API is only reachable
// while the game is running, so request errors are treated as "not in a
// game" rather than failures.
type Poller struct {
	client   *Client
	queue    *events.Queue
	student  string
	interval time.Duration
	logger   *zap.Logger

	inGame bool
}

// NewPoller creates a poller for the given student name.
func NewPoller(client *Client, queue *events.Queue, student string, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		client:   client,
		queue:    queue,
		student:  student,
		interval: defaultPollInterval,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. It returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	ui, err := p.client.UI(ctx)
	if err != nil {
		// Game client not running.
		p.inGame = false
		return
	}

	if !ui.InGame() {
		p.inGame = false
		return
	}

	if p.inGame {
		return
	}

	game, err := p.client.Game(ctx)
	if err != nil {
		p.logger.Debug("game state fetch failed", zap.Error(err))
		return
	}

	// Mark the session active regardless of whether we announce it, so a
	// replay view or a mid-game attach doesn't retrigger every tick.
	p.inGame = true

	if game.IsReplay || game.DisplayTime > maxStartClock {
		return
	}

	opponent := ""
	studentPresent := false
	for _, pl := range game.Players {
		if pl.Name == p.student {
			studentPresent = true
		} else if opponent == "" {
			opponent = pl.Name
		}
	}
	if !studentPresent || opponent == "" {
		return
	}

	p.logger.Info("game start detected", zap.String("opponent", opponent))
	p.queue.Put(events.GameStart{Opponent: opponent})
}
