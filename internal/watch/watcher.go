// Package watch re-runs a sync whenever a watched file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/equipfind/equipfind/internal/pkg/logger"
)

// SyncFunc is called once at start and after every settled change.
type SyncFunc func(ctx context.Context) error

// Watcher watches a single file, such as a catalog fixture. Editors often
// replace files instead of writing them, so the parent directory is watched
// and events are filtered by name.
type Watcher struct {
	path string
	sync SyncFunc

	// Batch processing
	pendingMu  sync.Mutex
	batchTimer *time.Timer
	batchDelay time.Duration

	// Stats
	statsMu  sync.Mutex
	syncs    int
	lastSync time.Time

	// Lifecycle
	done     chan struct{}
	stopOnce sync.Once
	log      *logger.Logger
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	Path       string
	Sync       SyncFunc
	BatchDelay time.Duration // Default: 500ms
	Logger     *logger.Logger
}

// NewWatcher creates a watcher for cfg.Path.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Sync == nil {
		return nil, fmt.Errorf("watch: sync func is required")
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:       absPath,
		sync:       cfg.Sync,
		batchDelay: cfg.BatchDelay,
		done:       make(chan struct{}),
		log:        cfg.Logger.WithComponent("watcher"),
	}, nil
}

// Start runs the initial sync, then blocks watching for changes until ctx is
// done or Stop is called. A failing initial sync is returned; later failures
// are logged and the watcher keeps going.
func (w *Watcher) Start(ctx context.Context) error {
	w.log.Info("Starting watcher", "path", w.path)

	if err := w.runSync(ctx); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	defer w.cancelPending()

	w.log.Info("Watching for changes", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	// Reset batch timer
	if w.batchTimer != nil {
		w.batchTimer.Stop()
	}
	w.batchTimer = time.AfterFunc(w.batchDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.runSync(ctx); err != nil {
			w.log.Error("Sync failed", "path", w.path, "error", err)
		}
	})
}

func (w *Watcher) cancelPending() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.batchTimer != nil {
		w.batchTimer.Stop()
	}
}

func (w *Watcher) runSync(ctx context.Context) error {
	if err := w.sync(ctx); err != nil {
		return err
	}
	w.statsMu.Lock()
	w.syncs++
	w.lastSync = time.Now()
	n := w.syncs
	w.statsMu.Unlock()

	w.log.Info("Sync complete", "path", w.path, "syncs", n)
	return nil
}

// Stop ends Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// Stats returns the number of successful syncs and when the last one ran.
func (w *Watcher) Stats() (int, time.Time) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.syncs, w.lastSync
}
