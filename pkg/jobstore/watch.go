// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package jobstore

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher calls a callback whenever the store document at a path is
// replaced. Bursts of writes are coalesced by a debounce delay, and a
// steady stream of writes still fires at least once per max wait.
type Watcher struct {
	path          string
	watcher       *fsnotify.Watcher
	debounceDelay time.Duration
	maxWait       time.Duration
	logger        zerolog.Logger

	mu            sync.Mutex
	debounceTimer *time.Timer
	pendingSince  time.Time
	seq           uint64
	closed        bool
}

// NewWatcher creates a watcher for the store document at path. Writes
// replace the document by rename, so the parent directory is watched
// rather than the file. Changes made after NewWatcher returns are seen.
func NewWatcher(path string, logger zerolog.Logger) (*Watcher, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close() //nolint:errcheck
		return nil, err
	}
	return &Watcher{
		path:          path,
		watcher:       fw,
		debounceDelay: 100 * time.Millisecond,
		maxWait:       500 * time.Millisecond,
		logger:        logger.With().Str("component", "jobstore.watcher").Logger(),
	}, nil
}

// Start blocks until ctx is canceled, invoking onChange after every
// debounced change. The watcher is closed when Start returns.
func (w *Watcher) Start(ctx context.Context, onChange func()) error {
	name := filepath.Base(w.path)
	defer w.Close() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.logger.Debug().Str("op", event.Op.String()).Msg("Store changed")
				w.schedule(onChange)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}

// Close stops pending callbacks and releases the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.watcher.Close()
}

// schedule restarts the debounce timer unless the oldest unreported change
// has already waited maxWait, in which case the armed timer is left to fire.
func (w *Watcher) schedule(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if w.debounceTimer != nil {
		if now.Sub(w.pendingSince) >= w.maxWait {
			return
		}
		if !w.debounceTimer.Stop() {
			// Already fired; this change starts a new burst.
			w.pendingSince = now
		}
	} else {
		w.pendingSince = now
	}

	delay := w.debounceDelay
	if remaining := w.maxWait - now.Sub(w.pendingSince); remaining < delay {
		delay = remaining
	}

	w.seq++
	seq := w.seq
	w.debounceTimer = time.AfterFunc(delay, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		if w.seq == seq {
			w.debounceTimer = nil
		}
		w.mu.Unlock()
		fn()
	})
}
