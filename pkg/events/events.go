// Package events defines the game and chat events that drive a coaching
// session, plus the queue that serializes them.
package events

import "github.com/sc2coach/sc2coach/pkg/replay"

// Event is a marker interface over the closed set of session triggers.
type Event interface {
	// Kind returns a stable name for the event variant, used for
	// handler dispatch and logging.
	Kind() string
}

// NewReplay is emitted when a freshly played replay has been parsed and
// persisted.
type NewReplay struct {
	Replay *replay.Replay
}

func (NewReplay) Kind() string { return "new_replay" }

// GameStart is emitted when the game client reports a fresh match. The
// client's /game response names the players but not the map, so the
// event carries only the opponent.
type GameStart struct {
	Opponent string
}

func (GameStart) Kind() string { return "game_start" }

// Wake is emitted by the wake-word listener or a manual trigger.
type Wake struct{}

func (Wake) Kind() string { return "wake" }

// TwitchChat carries a viewer chat message.
type TwitchChat struct {
	User    string
	Message string
}

func (TwitchChat) Kind() string { return "twitch_chat" }

// TwitchFollow is emitted when a viewer follows the channel.
type TwitchFollow struct {
	User string
}

func (TwitchFollow) Kind() string { return "twitch_follow" }

// TwitchRaid is emitted when another channel raids.
type TwitchRaid struct {
	User    string
	Viewers int
}

func (TwitchRaid) Kind() string { return "twitch_raid" }

// CastReplay asks the session to commentate a past replay.
type CastReplay struct {
	Replay *replay.Replay
}

func (CastReplay) Kind() string { return "cast_replay" }
