package jobstore

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/sslartifact/pkg/target"
)

func TestWatcher_NotifiesOnStoreUpdate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	s, err := Create(ctx, path, testSettings, []target.Target{"a:443"})
	require.NoError(t, err)

	w, err := NewWatcher(path, zerolog.Nop())
	require.NoError(t, err)

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Start(ctx, func() { changed <- struct{}{} })
	}()

	require.NoError(t, s.Transition(ctx, "a:443", StatusInProgress, time.Now()))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the store update")
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_FiresDuringSteadyWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	s, err := Create(ctx, path, testSettings, []target.Target{"a:443"})
	require.NoError(t, err)

	w, err := NewWatcher(path, zerolog.Nop())
	require.NoError(t, err)

	var calls atomic.Int32
	go func() { _ = w.Start(ctx, func() { calls.Add(1) }) }()

	// Writes arrive faster than the debounce delay for well over maxWait.
	deadline := time.Now().Add(1500 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.NoError(t, s.Transition(ctx, "a:443", StatusInProgress, time.Now()))
		time.Sleep(30 * time.Millisecond)
	}

	require.GreaterOrEqual(t, calls.Load(), int32(2), "callbacks while writes kept arriving")
}

func TestWatcher_CloseWithoutStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	w, err := NewWatcher(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", DefaultFileName), zerolog.Nop())
	require.Error(t, err)
}
