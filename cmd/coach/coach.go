// Package coachcmder
package coachcmder

import (
	"github.com/spf13/cobra"

	addcmder "github.com/sc2coach/sc2coach/cmd/coach/add"
	authcmder "github.com/sc2coach/sc2coach/cmd/coach/auth"
	configcmder "github.com/sc2coach/sc2coach/cmd/coach/config"
	runcmder "github.com/sc2coach/sc2coach/cmd/coach/run"
	versioncmder "github.com/sc2coach/sc2coach/cmd/version"
)

const coachLongDesc string = `Coach is a conversational StarCraft II practice partner.

It watches your replay folder, stores and annotates every ladder game,
and talks through your games with you:
  coach run        Run the coaching daemon
  coach add        Bulk-import an existing replay folder
  coach auth       Store assistant API credentials
  coach config     Manage persistent configuration`

const coachShortDesc string = "Coach - StarCraft II replay coaching"

func NewCoachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coach",
		Short: coachShortDesc,
		Long:  coachLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .coach/ config directory")

	// Add subcommands
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
