package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent coach configuration stored as
// config.toml in the .coach/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Replays     ReplaysConfig     `toml:"replays"`
	Student     StudentConfig     `toml:"student"`
	Session     SessionConfig     `toml:"session"`
	Backend     BackendConfig     `toml:"backend"`
	Store       StoreConfig       `toml:"store"`
	EventStream EventStreamConfig `toml:"eventstream"`
	GameClient  GameClientConfig  `toml:"gameclient"`
}

// ReplaysConfig holds replay folder and filtering settings.
type ReplaysConfig struct {
	Folder          string `toml:"folder,omitempty"`
	InstantLeaveMax int    `toml:"instant_leave_max,omitempty"`
	DeleteRejected  bool   `toml:"delete_rejected,omitempty"`
}

// StudentConfig identifies the player being coached.
type StudentConfig struct {
	Name string `toml:"name,omitempty"`
	Race string `toml:"race,omitempty"`
}

// SessionConfig holds conversation behavior settings.
type SessionConfig struct {
	Interactive bool `toml:"interactive,omitempty"`
	Audio       bool `toml:"audio,omitempty"`
}

// BackendConfig holds assistant provider settings. Pricing is in USD
// per million tokens.
type BackendConfig struct {
	Provider          string  `toml:"provider,omitempty"`
	Target            string  `toml:"target,omitempty"`
	AssistantID       string  `toml:"assistant_id,omitempty"`
	PromptPricing     float64 `toml:"prompt_pricing,omitempty"`
	CompletionPricing float64 `toml:"completion_pricing,omitempty"`
}

// StoreConfig holds document store settings. Target is a file path for
// sqlite, a connection string for postgres, or a URI for mongo.
type StoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Database string `toml:"database,omitempty"`
}

// EventStreamConfig holds outbound event publication settings.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// GameClientConfig holds live game state API settings.
type GameClientConfig struct {
	Target      string `toml:"target,omitempty"`
	PulseTarget string `toml:"pulse_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"replays.folder": {
		get: func(c *Config) string { return c.Replays.Folder },
		set: func(c *Config, v string) error { c.Replays.Folder = v; return nil },
	},
	"replays.instant_leave_max": {
		get: func(c *Config) string { return strconv.Itoa(c.Replays.InstantLeaveMax) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for replays.instant_leave_max: %w", err)
			}
			c.Replays.InstantLeaveMax = n
			return nil
		},
	},
	"replays.delete_rejected": {
		get: func(c *Config) string { return strconv.FormatBool(c.Replays.DeleteRejected) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for replays.delete_rejected: %w", err)
			}
			c.Replays.DeleteRejected = b
			return nil
		},
	},
	"student.name": {
		get: func(c *Config) string { return c.Student.Name },
		set: func(c *Config, v string) error { c.Student.Name = v; return nil },
	},
	"student.race": {
		get: func(c *Config) string { return c.Student.Race },
		set: func(c *Config, v string) error { c.Student.Race = v; return nil },
	},
	"session.interactive": {
		get: func(c *Config) string { return strconv.FormatBool(c.Session.Interactive) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for session.interactive: %w", err)
			}
			c.Session.Interactive = b
			return nil
		},
	},
	"session.audio": {
		get: func(c *Config) string { return strconv.FormatBool(c.Session.Audio) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for session.audio: %w", err)
			}
			c.Session.Audio = b
			return nil
		},
	},
	"backend.provider": {
		get: func(c *Config) string { return c.Backend.Provider },
		set: func(c *Config, v string) error { c.Backend.Provider = v; return nil },
	},
	"backend.target": {
		get: func(c *Config) string { return c.Backend.Target },
		set: func(c *Config, v string) error { c.Backend.Target = v; return nil },
	},
	"backend.assistant_id": {
		get: func(c *Config) string { return c.Backend.AssistantID },
		set: func(c *Config, v string) error { c.Backend.AssistantID = v; return nil },
	},
	"backend.prompt_pricing": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Backend.PromptPricing, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for backend.prompt_pricing: %w", err)
			}
			c.Backend.PromptPricing = f
			return nil
		},
	},
	"backend.completion_pricing": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Backend.CompletionPricing, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for backend.completion_pricing: %w", err)
			}
			c.Backend.CompletionPricing = f
			return nil
		},
	},
	"store.provider": {
		get: func(c *Config) string { return c.Store.Provider },
		set: func(c *Config, v string) error { c.Store.Provider = v; return nil },
	},
	"store.target": {
		get: func(c *Config) string { return c.Store.Target },
		set: func(c *Config, v string) error { c.Store.Target = v; return nil },
	},
	"store.database": {
		get: func(c *Config) string { return c.Store.Database },
		set: func(c *Config, v string) error { c.Store.Database = v; return nil },
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"gameclient.target": {
		get: func(c *Config) string { return c.GameClient.Target },
		set: func(c *Config, v string) error { c.GameClient.Target = v; return nil },
	},
	"gameclient.pulse_target": {
		get: func(c *Config) string { return c.GameClient.PulseTarget },
		set: func(c *Config, v string) error { c.GameClient.PulseTarget = v; return nil },
	},
}
