// Package watcher turns replay files appearing on disk into session
// events. It watches the game's replay folder, waits for each new file
// to finish writing, parses and filters it, then hands persistence to
// the worker pool and signals the session queue.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/events"
	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/replay/filter"
	"github.com/sc2coach/sc2coach/pkg/replay/stats"
	"github.com/sc2coach/sc2coach/pkg/worker"
)

const (
	replayExt = ".sc2replay"

	defaultStabilizeInterval = 100 * time.Millisecond
	defaultStabilizeTimeout  = 3 * time.Second

	deleteRetries       = 10
	deleteRetryInterval = time.Second
)

// Config holds the watcher's collaborators and tuning knobs.
type Config struct {
	// Dir is the replay folder to watch.
	Dir string

	// Parser decodes replay files.
	Parser replay.Parser

	// Filter decides which replays are worth keeping.
	Filter *filter.Pipeline

	// Pool persists accepted replays asynchronously.
	Pool *worker.Pool

	// Queue receives a NewReplay event per accepted replay.
	Queue *events.Queue

	// DeleteRejected removes instant-leave and AFK replays from disk.
	DeleteRejected bool

	// StabilizeInterval is the mtime poll interval while the game is
	// still writing the file (defaults to 100ms).
	StabilizeInterval time.Duration

	// StabilizeTimeout bounds the stabilization wait (defaults to 3s).
	StabilizeTimeout time.Duration

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Watcher reacts to new replay files in a folder.
type Watcher struct {
	config Config
	fsw    *fsnotify.Watcher
	logger *zap.Logger
}

// New creates a watcher for the configured replay folder.
func New(c Config) (*Watcher, error) {
	if c.Dir == "" {
		return nil, fmt.Errorf("no replay folder configured")
	}
	if c.StabilizeInterval <= 0 {
		c.StabilizeInterval = defaultStabilizeInterval
	}
	if c.StabilizeTimeout <= 0 {
		c.StabilizeTimeout = defaultStabilizeTimeout
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating replay watcher: %w", err)
	}
	if err := fsw.Add(c.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching replay folder %q: %w", c.Dir, err)
	}

	return &Watcher{
		config: c,
		fsw:    fsw,
		logger: c.Logger,
	}, nil
}

// Start blocks consuming filesystem events until ctx is canceled or the
// watcher is closed. Run it in its own goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("watching replay folder", zap.String("dir", w.config.Dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if strings.ToLower(filepath.Ext(event.Name)) != replayExt {
				continue
			}
			w.handleReplay(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("replay watcher error", zap.Error(err))
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handleReplay(ctx context.Context, path string) {
	log := w.logger.With(zap.String("file", filepath.Base(path)))
	log.Info("replay file detected")

	if err := w.waitForFile(ctx, path); err != nil {
		log.Warn("replay file never stabilized", zap.Error(err))
		return
	}

	raw, err := w.config.Parser.Load(path)
	if err != nil {
		log.Error("replay parse failed", zap.Error(err))
		return
	}

	// Non-ladder formats are simply ignored: the file stays on disk,
	// nothing downstream cares about it.
	if !w.config.Filter.IsLadder(raw) || w.config.Filter.IsArchon(raw) {
		log.Debug("replay skipped, not a 1v1 ladder match")
		return
	}

	// Throwaway games are rejected and, when configured, removed so
	// they never clutter the replay folder.
	if w.config.Filter.IsInstantLeave(raw) || w.config.Filter.HasAFKPlayer(raw) {
		log.Info("replay rejected, instant leave or AFK player")
		if w.config.DeleteRejected {
			w.deleteWithRetry(ctx, path, log)
		}
		return
	}

	rep := replay.FromRaw(raw)
	stats.Attach(raw, rep, w.logger)

	if !w.config.Pool.Enqueue(worker.Job{Replay: rep, Players: replay.PlayerInfos(raw)}) {
		log.Error("replay not persisted, worker queue full")
	}

	if !w.config.Queue.Put(events.NewReplay{Replay: rep}) {
		log.Warn("session queue full, replay event dropped")
	}
}

// waitForFile polls until the file's size and mtime stop changing. The
// game client streams the replay out over several writes; parsing too
// early reads a truncated file.
func (w *Watcher) waitForFile(ctx context.Context, path string) error {
	deadline := time.Now().Add(w.config.StabilizeTimeout)

	var lastSize int64 = -1
	var lastMod time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.config.StabilizeInterval):
		}

		stat, err := os.Stat(path)
		if err != nil {
			if time.Now().After(deadline) {
				return fmt.Errorf("stat %q: %w", path, err)
			}
			continue
		}

		if stat.Size() == lastSize && stat.ModTime().Equal(lastMod) && lastSize >= 0 {
			return nil
		}
		lastSize = stat.Size()
		lastMod = stat.ModTime()

		if time.Now().After(deadline) {
			return fmt.Errorf("file %q still changing after %s", path, w.config.StabilizeTimeout)
		}
	}
}

// deleteWithRetry removes a rejected replay. The game client can hold
// the file open briefly after writing it, so removal is retried.
func (w *Watcher) deleteWithRetry(ctx context.Context, path string, log *zap.Logger) {
	for attempt := 1; attempt <= deleteRetries; attempt++ {
		err := os.Remove(path)
		if err == nil {
			log.Info("rejected replay deleted", zap.Int("attempts", attempt))
			return
		}

		log.Debug("replay delete failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(deleteRetryInterval):
		}
	}
	log.Warn("rejected replay could not be deleted", zap.Int("attempts", deleteRetries))
}
