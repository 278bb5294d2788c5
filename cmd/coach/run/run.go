// Package runcmder provides the coaching daemon command.
package runcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/assistant"
	"github.com/sc2coach/sc2coach/pkg/assistant/mock"
	"github.com/sc2coach/sc2coach/pkg/assistant/openai"
	"github.com/sc2coach/sc2coach/pkg/coach"
	"github.com/sc2coach/sc2coach/pkg/config"
	"github.com/sc2coach/sc2coach/pkg/credentials"
	"github.com/sc2coach/sc2coach/pkg/events"
	"github.com/sc2coach/sc2coach/pkg/eventstream"
	kafkastream "github.com/sc2coach/sc2coach/pkg/eventstream/kafka"
	"github.com/sc2coach/sc2coach/pkg/eventstream/nop"
	"github.com/sc2coach/sc2coach/pkg/gameinfo"
	"github.com/sc2coach/sc2coach/pkg/logger"
	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/replay/filter"
	"github.com/sc2coach/sc2coach/pkg/speech"
	"github.com/sc2coach/sc2coach/pkg/store"
	"github.com/sc2coach/sc2coach/pkg/store/inmemory"
	mongostore "github.com/sc2coach/sc2coach/pkg/store/mongo"
	"github.com/sc2coach/sc2coach/pkg/store/postgres"
	"github.com/sc2coach/sc2coach/pkg/store/sqlite"
	"github.com/sc2coach/sc2coach/pkg/tools"
	"github.com/sc2coach/sc2coach/pkg/watcher"
	"github.com/sc2coach/sc2coach/pkg/worker"
)

type runCommander struct {
	folder        string
	student       string
	race          string
	interactive   bool
	backend       string
	storeProvider string
	storeTarget   string

	debug     bool
	configDir string

	v      *viper.Viper
	logger *zap.Logger
}

// runFlags maps registry keys to the flags this command exposes. Every
// flag shadows a dotted config key so the usual precedence applies
// (flag > env > config file > default).
var runFlags = config.FlagSet{
	config.FlagReplayFolder: {
		Name: "folder", Shorthand: "f", ViperKey: "replays.folder",
		Description: "Replay folder to watch",
	},
	config.FlagStudentName: {
		Name: "student", ViperKey: "student.name",
		Description: "Ladder name of the player being coached",
	},
	config.FlagStudentRace: {
		Name: "race", ViperKey: "student.race",
		Description: "Race the student plays (Terran, Zerg, Protoss, Random)",
	},
	config.FlagInteractive: {
		Name: "interactive", ViperKey: "session.interactive",
		Description: "Enable the conversational turn loop",
	},
	config.FlagBackend: {
		Name: "backend", ViperKey: "backend.provider",
		Description: "Assistant backend (openai, mocked)",
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

var runFlagKeys = []string{
	config.FlagReplayFolder,
	config.FlagStudentName,
	config.FlagStudentRace,
	config.FlagInteractive,
	config.FlagBackend,
	config.FlagStoreProvider,
	config.FlagStoreTarget,
}

const runLongDesc string = `Run the coaching daemon.

The daemon watches the configured replay folder, persists every accepted
ladder replay, and opens a coaching conversation whenever something
notable happens: a new replay lands, a ladder game starts, or a cast is
requested from chat.

The student's name must be configured (coach config set student.name ...)
and at least one replay must already be stored; import existing replays
first with coach add.

Examples:
  coach run
  coach run --folder ~/replays --student Serral
  coach run --backend mocked --store-provider inmemory`

const runShortDesc string = "Run the coaching daemon"

func NewRunCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: runShortDesc,
		Long:  runLongDesc,
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
			config.BindRegisteredFlags(cmder.v, cmd, runFlags, runFlagKeys)

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, runFlags, config.FlagReplayFolder, &cmder.folder)
	config.AddStringFlag(cmd, runFlags, config.FlagStudentName, &cmder.student)
	config.AddStringFlag(cmd, runFlags, config.FlagStudentRace, &cmder.race)
	config.AddBoolFlag(cmd, runFlags, config.FlagInteractive, &cmder.interactive)
	config.AddStringFlag(cmd, runFlags, config.FlagBackend, &cmder.backend)
	config.AddStringFlag(cmd, runFlags, config.FlagStoreProvider, &cmder.storeProvider)
	config.AddStringFlag(cmd, runFlags, config.FlagStoreTarget, &cmder.storeTarget)

	return cmd
}

func (c *runCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	student := c.v.GetString("student.name")
	if student == "" {
		return errors.New("student.name is not configured; set it with 'coach config set student.name <name>'")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := c.newStoreDriver(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		Driver:    driver,
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	queue := events.NewQueue(0, c.logger)

	pipeline := filter.New(c.v.GetInt("replays.instant_leave_max"), c.logger)

	w, err := watcher.New(watcher.Config{
		Dir:            c.v.GetString("replays.folder"),
		Parser:         replay.NewSidecarParser(),
		Filter:         pipeline,
		Pool:           pool,
		Queue:          queue,
		DeleteRejected: c.v.GetBool("replays.delete_rejected"),
		Logger:         c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating replay watcher: %w", err)
	}
	defer w.Close()

	game := gameinfo.NewClient(c.v.GetString("gameclient.target"))
	pulse := gameinfo.NewPulseClient(c.v.GetString("gameclient.pulse_target"))

	registry := tools.Builtins(driver, game, queue, c.logger)

	backend, err := c.newAssistant(registry.Definitions())
	if err != nil {
		return err
	}

	sess := coach.New(coach.Config{
		Assistant:         backend,
		Store:             driver,
		Tools:             registry,
		Queue:             queue,
		Game:              game,
		Pulse:             pulse,
		Publisher:         publisher,
		Speaker:           speech.NopSpeaker{},
		Input:             coach.NewTerminalReader(os.Stdin, os.Stdout),
		Out:               os.Stdout,
		Interactive:       c.v.GetBool("session.interactive"),
		StudentName:       student,
		StudentRace:       c.v.GetString("student.race"),
		Backend:           c.v.GetString("backend.provider"),
		PromptPricing:     c.v.GetFloat64("backend.prompt_pricing"),
		CompletionPricing: c.v.GetFloat64("backend.completion_pricing"),
		Logger:            c.logger,
	})

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("replay watcher stopped", zap.Error(err))
		}
	}()

	poller := gameinfo.NewPoller(game, queue, student, c.logger)
	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("game poller stopped", zap.Error(err))
		}
	}()

	c.logger.Info("coaching daemon running",
		zap.String("student", student),
		zap.String("folder", c.v.GetString("replays.folder")),
		zap.String("backend", c.v.GetString("backend.provider")),
		zap.String("store", c.v.GetString("store.provider")),
	)

	err = sess.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	c.logger.Info("shutting down")

	// The run context is gone by now; give the final save its own.
	if err := sess.Close(context.Background()); err != nil {
		c.logger.Warn("session close failed", zap.Error(err))
	}

	return nil
}

// newStoreDriver builds the configured store driver. An unreachable
// store is a startup failure, not something to limp along without.
func (c *runCommander) newStoreDriver(ctx context.Context) (store.Driver, error) {
	provider := c.v.GetString("store.provider")
	target := c.v.GetString("store.target")

	switch provider {
	case "inmemory":
		c.logger.Info("using in-memory store")
		return inmemory.NewDriver(), nil
	case "sqlite":
		if target == "" {
			target = "coach.db"
		}
		driver, err := sqlite.NewDriver(target)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		c.logger.Info("using sqlite store", zap.String("path", target))
		return driver, nil
	case "postgres":
		driver, err := postgres.NewDriver(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres store: %w", err)
		}
		c.logger.Info("using postgres store")
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
		c.logger.Info("using mongo store", zap.String("database", database))
		return driver, nil
	default:
		return nil, fmt.Errorf("unknown store provider: %q", provider)
	}
}

func (c *runCommander) newPublisher() (eventstream.Publisher, error) {
	provider := c.v.GetString("eventstream.provider")

	switch provider {
	case "", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		brokers := strings.Split(c.v.GetString("eventstream.brokers"), ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		topic := c.v.GetString("eventstream.topic")
		pub, err := kafkastream.NewPublisher(brokers, topic)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing events to kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", topic),
		)
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q", provider)
	}
}

func (c *runCommander) newAssistant(defs []assistant.Definition) (assistant.Assistant, error) {
	provider := c.v.GetString("backend.provider")

	switch provider {
	case "openai":
		key, err := c.openAIKey()
		if err != nil {
			return nil, err
		}
		return openai.NewClient(openai.Config{
			APIKey:      key,
			AssistantID: c.v.GetString("backend.assistant_id"),
			BaseURL:     c.v.GetString("backend.target"),
			Tools:       defs,
			Logger:      c.logger,
		})
	case "mocked":
		c.logger.Warn("using mocked assistant backend")
		return mock.NewClient(), nil
	default:
		return nil, fmt.Errorf("unknown assistant backend: %q", provider)
	}
}

// openAIKey resolves the API key: environment first, then the stored
// credentials file.
func (c *runCommander) openAIKey() (string, error) {
	if key := os.Getenv(credentials.EnvVarForProvider("openai")); key != "" {
		return key, nil
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	key, err := mgr.GetKey("openai")
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errors.New("no OpenAI API key found; set OPENAI_API_KEY or run 'coach auth openai'")
	}

	return key, nil
}
