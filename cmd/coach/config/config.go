// Package configcmder provides the config command for managing persistent
// coach configuration stored in the .coach/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent coach configuration.

Configuration is stored as config.toml in the .coach/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  replays.folder, replays.instant_leave_max, replays.delete_rejected,
  student.name, student.race,
  session.interactive, session.audio,
  backend.provider, backend.target, backend.assistant_id,
  backend.prompt_pricing, backend.completion_pricing,
  store.provider, store.target, store.database,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  gameclient.target, gameclient.pulse_target

Use subcommands to get, set, or list configuration values:
  coach config set <key> <value>    Set a configuration value
  coach config get <key>            Get a configuration value
  coach config list                 List all configuration values

Examples:
  coach config set student.name Serral
  coach config set store.provider postgres
  coach config get replays.folder
  coach config list`

const configShortDesc string = "Manage persistent coach configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
