package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sc2coach/sc2coach/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the COACH_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the command)
//  2. Environment variables (COACH_STUDENT_NAME, COACH_STORE_TARGET, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: COACH_REPLAYS_FOLDER, COACH_BACKEND_TARGET, etc.
	v.SetEnvPrefix("COACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Replays
	v.SetDefault("replays.folder", d.Replays.Folder)
	v.SetDefault("replays.instant_leave_max", d.Replays.InstantLeaveMax)
	v.SetDefault("replays.delete_rejected", d.Replays.DeleteRejected)

	// Student
	v.SetDefault("student.name", d.Student.Name)
	v.SetDefault("student.race", d.Student.Race)

	// Session
	v.SetDefault("session.interactive", d.Session.Interactive)
	v.SetDefault("session.audio", d.Session.Audio)

	// Backend
	v.SetDefault("backend.provider", d.Backend.Provider)
	v.SetDefault("backend.target", d.Backend.Target)
	v.SetDefault("backend.assistant_id", d.Backend.AssistantID)
	v.SetDefault("backend.prompt_pricing", d.Backend.PromptPricing)
	v.SetDefault("backend.completion_pricing", d.Backend.CompletionPricing)

	// Store
	v.SetDefault("store.provider", d.Store.Provider)
	v.SetDefault("store.target", d.Store.Target)
	v.SetDefault("store.database", d.Store.Database)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	// Game client
	v.SetDefault("gameclient.target", d.GameClient.Target)
	v.SetDefault("gameclient.pulse_target", d.GameClient.PulseTarget)
}
