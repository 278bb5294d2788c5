// Package addcmder provides the bulk replay import command.
package addcmder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/cliui"
	"github.com/sc2coach/sc2coach/pkg/config"
	"github.com/sc2coach/sc2coach/pkg/logger"
	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/replay/filter"
	"github.com/sc2coach/sc2coach/pkg/replay/stats"
	"github.com/sc2coach/sc2coach/pkg/store"
	"github.com/sc2coach/sc2coach/pkg/store/inmemory"
	mongostore "github.com/sc2coach/sc2coach/pkg/store/mongo"
	"github.com/sc2coach/sc2coach/pkg/store/postgres"
	"github.com/sc2coach/sc2coach/pkg/store/sqlite"
	"github.com/sc2coach/sc2coach/pkg/worker"
)

const replayExt = ".sc2replay"

// afterLayout is the accepted --after date format.
const afterLayout = "2006-01-02"

type addCommander struct {
	folder        string
	after         string
	storeProvider string
	storeTarget   string

	debug     bool
	configDir string

	v      *viper.Viper
	logger *zap.Logger
}

var addFlags = config.FlagSet{
	config.FlagReplayFolder: {
		Name: "folder", Shorthand: "f", ViperKey: "replays.folder",
		Description: "Replay folder to import",
	},
	config.FlagStoreProvider: {
		Name: "store-provider", ViperKey: "store.provider",
		Description: "Document store (inmemory, sqlite, postgres, mongo)",
	},
	config.FlagStoreTarget: {
		Name: "store-target", ViperKey: "store.target",
		Description: "Store path, connection string, or URI",
	},
}

var addFlagKeys = []string{
	config.FlagReplayFolder,
	config.FlagStoreProvider,
	config.FlagStoreTarget,
}

const addLongDesc string = `Bulk-import a replay folder.

Walks the folder recursively, parses every replay, applies the same
ladder/instant-leave/AFK filters as the daemon, and stores what passes.
Import is idempotent: a replay already stored (by content hash) is
updated in place, never duplicated.

Examples:
  coach add
  coach add --folder ~/replays
  coach add --after 2026-01-01`

const addShortDesc string = "Bulk-import a replay folder"

func NewAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cmder.v, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(cmder.v, cmd, addFlags, addFlagKeys)

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, addFlags, config.FlagReplayFolder, &cmder.folder)
	config.AddStringFlag(cmd, addFlags, config.FlagStoreProvider, &cmder.storeProvider)
	config.AddStringFlag(cmd, addFlags, config.FlagStoreTarget, &cmder.storeTarget)
	cmd.Flags().StringVar(&cmder.after, "after", "", "Only import replays played on or after this date (YYYY-MM-DD)")

	return cmd
}

func (c *addCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	folder := c.v.GetString("replays.folder")
	if folder == "" {
		return errors.New("no replay folder configured")
	}

	var after time.Time
	if c.after != "" {
		var err error
		after, err = time.Parse(afterLayout, c.after)
		if err != nil {
			return fmt.Errorf("invalid --after date %q (want YYYY-MM-DD)", c.after)
		}
	}

	ctx := context.Background()

	driver, err := c.newStoreDriver(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	pool, err := worker.NewPool(&worker.Config{
		Driver: driver,
		Logger: c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}

	var paths []string
	err = cliui.Step(os.Stdout, fmt.Sprintf("Scanning %s", folder), func() error {
		paths, err = collectReplays(folder)
		return err
	})
	if err != nil {
		return err
	}

	parser := replay.NewSidecarParser()
	pipeline := filter.New(c.v.GetInt("replays.instant_leave_max"), c.logger)

	var imported, skipped, failed int
	err = cliui.Step(os.Stdout, fmt.Sprintf("Importing %d replays", len(paths)), func() error {
		for _, path := range paths {
			raw, err := parser.Load(path)
			if err != nil {
				c.logger.Debug("replay parse failed",
					zap.String("file", filepath.Base(path)),
					zap.Error(err),
				)
				failed++
				continue
			}

			if !after.IsZero() && raw.Date.Before(after) {
				skipped++
				continue
			}

			if !pipeline.Apply(raw) {
				skipped++
				continue
			}

			rep := replay.FromRaw(raw)
			stats.Attach(raw, rep, c.logger)

			if !pool.Enqueue(worker.Job{Replay: rep, Players: replay.PlayerInfos(raw)}) {
				failed++
				continue
			}
			imported++
		}

		// Drain the pool so every accepted replay is stored before the
		// summary prints.
		pool.Close()
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Imported %d replays (%d skipped, %d failed)\n\n",
		cliui.SuccessMark, imported, skipped, failed)

	return nil
}

// collectReplays walks the folder tree gathering replay files.
func collectReplays(folder string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) == replayExt {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", folder, err)
	}
	return paths, nil
}

func (c *addCommander) newStoreDriver(ctx context.Context) (store.Driver, error) {
	provider := c.v.GetString("store.provider")
	target := c.v.GetString("store.target")

	switch provider {
	case "inmemory":
		return inmemory.NewDriver(), nil
	case "sqlite":
		if target == "" {
			target = "coach.db"
		}
		driver, err := sqlite.NewDriver(target)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return driver, nil
	case "postgres":
		driver, err := postgres.NewDriver(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres store: %w", err)
		}
		return driver, nil
	case "mongo":
		database := c.v.GetString("store.database")
		if database == "" {
			database = "coach"
		}
		driver, err := mongostore.NewDriver(ctx, target, database)
		if err != nil {
			return nil, fmt.Errorf("connecting to mongo store: %w", err)
		}
		return driver, nil
	default:
		return nil, fmt.Errorf("unknown store provider: %q", provider)
	}
}
