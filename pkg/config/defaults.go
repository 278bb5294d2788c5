package config

import (
	"os"
	"path/filepath"

	"github.com/sc2coach/sc2coach/pkg/replay/filter"
)

const (
	defaultBackendProvider = "openai"
	defaultBackendTarget   = "https://api.openai.com/v1"

	// Defaults approximate gpt-4o pricing, USD per million tokens.
	defaultPromptPricing     = 2.5
	defaultCompletionPricing = 10.0

	defaultStoreProvider = "sqlite"

	defaultEventStreamProvider = "none"

	defaultGameClientTarget = "http://127.0.0.1:6119"
	defaultPulseTarget      = "https://sc2pulse.nephest.com/sc2/api"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Replays: ReplaysConfig{
			Folder:          defaultReplayFolder(),
			InstantLeaveMax: filter.DefaultInstantLeaveMax,
			DeleteRejected:  true,
		},
		Session: SessionConfig{
			Interactive: true,
			Audio:       false,
		},
		Backend: BackendConfig{
			Provider:          defaultBackendProvider,
			Target:            defaultBackendTarget,
			PromptPricing:     defaultPromptPricing,
			CompletionPricing: defaultCompletionPricing,
		},
		Store: StoreConfig{
			Provider: defaultStoreProvider,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
		},
		GameClient: GameClientConfig{
			Target:      defaultGameClientTarget,
			PulseTarget: defaultPulseTarget,
		},
	}
}

// defaultReplayFolder guesses the game's multiplayer replay folder under
// the user's documents directory. Empty when the home directory can't be
// resolved; the watcher requires an explicit folder in that case.
func defaultReplayFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Documents", "StarCraft II", "Accounts")
}
