// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/vulntor/sslartifact/pkg/target"
)

// DefaultFileName is the store file created inside a run's output directory.
const DefaultFileName = "ssl_artifacting.json"

const lockSuffix = ".lock"

// ReservedNames lists the entries a store named DefaultFileName keeps in its
// directory. Temporary files start with a dot.
func ReservedNames() []string {
	return []string{DefaultFileName, DefaultFileName + lockSuffix}
}

const (
	documentVersion = 1
	lockRetryDelay  = 10 * time.Millisecond
)

// document is the on-disk layout: a settings row and job rows keyed by target.
type document struct {
	Version  int                       `json:"version"`
	Settings Settings                  `json:"settings"`
	Jobs     map[target.Target]*Record `json:"jobs"`
}

// FileStore keeps the job table in a single JSON document. Each operation
// takes an exclusive lock on a sidecar lock file, applies one change and
// replaces the document atomically, so any number of workers or processes
// may hold their own FileStore for the same path.
type FileStore struct {
	path     string
	lockPath string
}

var _ Store = (*FileStore)(nil)

// Create writes a new store at path. It fails with ErrAlreadyExists when a
// store is already present.
func Create(ctx context.Context, path string, settings Settings, targets []target.Target) (*FileStore, error) {
	s := newFileStore(path)

	err := s.withLock(ctx, func() error {
		if _, err := os.Stat(s.path); err == nil {
			return fmt.Errorf("store %s: %w", s.path, ErrAlreadyExists)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat store %s: %w", s.path, err)
		}

		doc := &document{
			Version:  documentVersion,
			Settings: settings,
			Jobs:     newRecords(targets),
		}
		return s.write(doc)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Open returns a handle to an existing store after validating its contents.
func Open(ctx context.Context, path string) (*FileStore, error) {
	s := newFileStore(path)
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewNotFoundError("store", s.path)
		}
		return nil, fmt.Errorf("stat store %s: %w", s.path, err)
	}
	if err := s.view(ctx, func(*document) error { return nil }); err != nil {
		return nil, err
	}
	return s, nil
}

func newFileStore(path string) *FileStore {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &FileStore{path: path, lockPath: path + lockSuffix}
}

// Path returns the absolute location of the store document.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Settings(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.view(ctx, func(doc *document) error {
		out = doc.Settings
		return nil
	})
	return out, err
}

func (s *FileStore) Get(ctx context.Context, t target.Target) (Record, error) {
	var out Record
	err := s.view(ctx, func(doc *document) error {
		rec, ok := doc.Jobs[t]
		if !ok {
			return NewNotFoundError("job", string(t))
		}
		out = copyRecord(rec)
		return nil
	})
	return out, err
}

func (s *FileStore) PutStatus(ctx context.Context, t target.Target, status Status) error {
	return s.update(ctx, func(doc *document) error { return putStatus(doc.Jobs, t, status) })
}

func (s *FileStore) PutTimestamps(ctx context.Context, t target.Target, start, stop *time.Time) error {
	return s.update(ctx, func(doc *document) error { return putTimestamps(doc.Jobs, t, start, stop) })
}

func (s *FileStore) Transition(ctx context.Context, t target.Target, status Status, at time.Time) error {
	return s.update(ctx, func(doc *document) error { return transition(doc.Jobs, t, status, at) })
}

func (s *FileStore) Retry(ctx context.Context, t target.Target, at time.Time) error {
	return s.update(ctx, func(doc *document) error { return retry(doc.Jobs, t, at) })
}

func (s *FileStore) Pending(ctx context.Context, includeTimeout bool) ([]target.Target, error) {
	var out []target.Target
	err := s.view(ctx, func(doc *document) error {
		out = pending(doc.Jobs, includeTimeout)
		return nil
	})
	return out, err
}

func (s *FileStore) Records(ctx context.Context) ([]Record, error) {
	var out []Record
	err := s.view(ctx, func(doc *document) error {
		out = sortedRecords(doc.Jobs)
		return nil
	})
	return out, err
}

func (s *FileStore) view(ctx context.Context, fn func(*document) error) error {
	return s.withRLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		return fn(doc)
	})
}

func (s *FileStore) update(ctx context.Context, fn func(*document) error) error {
	return s.withLock(ctx, func() error {
		doc, err := s.read()
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		return s.write(doc)
	})
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	fl := flock.New(s.lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock store %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("lock store %s: not acquired", s.path)
	}
	defer fl.Unlock() //nolint:errcheck
	return fn()
}

func (s *FileStore) withRLock(ctx context.Context, fn func() error) error {
	fl := flock.New(s.lockPath)
	locked, err := fl.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock store %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("lock store %s: not acquired", s.path)
	}
	defer fl.Unlock() //nolint:errcheck
	return fn()
}

func (s *FileStore) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewNotFoundError("store", s.path)
		}
		return nil, fmt.Errorf("read store %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, NewMalformedError(s.path, err.Error())
	}
	if err := validate(&doc); err != nil {
		return nil, NewMalformedError(s.path, err.Error())
	}
	return &doc, nil
}

func (s *FileStore) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace store %s: %w", s.path, err)
	}
	return nil
}

func validate(doc *document) error {
	if doc.Version != documentVersion {
		return fmt.Errorf("unsupported version %d", doc.Version)
	}
	if doc.Settings.ToolName == "" {
		return errors.New("settings: missing app")
	}
	if doc.Settings.OutputDirectory == "" {
		return errors.New("settings: missing output_directory")
	}
	if doc.Jobs == nil {
		return errors.New("missing jobs table")
	}
	for key, rec := range doc.Jobs {
		if rec == nil {
			return fmt.Errorf("job %s: empty record", key)
		}
		if rec.Target != key {
			return fmt.Errorf("job %s: target mismatch %q", key, rec.Target)
		}
		if !rec.Status.Valid() {
			return fmt.Errorf("job %s: unknown status %q", key, rec.Status)
		}
	}
	return nil
}
