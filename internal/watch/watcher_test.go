package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/equipfind/equipfind/internal/pkg/logger"
)

func TestWatcher_SyncsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "building.yaml")
	if err := os.WriteFile(path, []byte("rooms: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	synced := make(chan struct{}, 10)
	w, err := NewWatcher(WatcherConfig{
		Path:       path,
		BatchDelay: 20 * time.Millisecond,
		Logger:     logger.Discard(),
		Sync: func(context.Context) error {
			synced <- struct{}{}
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	waitSync(t, synced) // initial

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("rooms: [{id: 1, name: A}]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitSync(t, synced)

	deadline := time.Now().Add(time.Second)
	for {
		n, last := w.Stats()
		if n >= 2 && !last.IsZero() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Stats() = %d, %v", n, last)
		}
		time.Sleep(5 * time.Millisecond)
	}

	w.Stop()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestWatcher_InitialSyncFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "building.yaml")
	w, err := NewWatcher(WatcherConfig{
		Path:   path,
		Logger: logger.Discard(),
		Sync:   func(context.Context) error { return errors.New("bad fixture") },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Error("Start() should fail when the initial sync fails")
	}
}

func TestNewWatcher_RequiresSync(t *testing.T) {
	if _, err := NewWatcher(WatcherConfig{Path: "x.yaml"}); err == nil {
		t.Error("NewWatcher() without Sync should fail")
	}
}

func waitSync(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for sync")
	}
}
