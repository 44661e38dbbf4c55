// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package jobstore

import (
	"context"
	"sync"
	"time"

	"github.com/vulntor/sslartifact/pkg/target"
)

// MemoryStore is an in-memory Store with the same lifecycle rules as
// FileStore. It is used in tests and for dry runs.
type MemoryStore struct {
	mu       sync.RWMutex
	settings Settings
	jobs     map[target.Target]*Record
	writes   int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store with one Not Started record per target.
func NewMemoryStore(settings Settings, targets []target.Target) *MemoryStore {
	return &MemoryStore{
		settings: settings,
		jobs:     newRecords(targets),
	}
}

// Writes returns the number of successful mutations, which lets tests
// assert that an operation left the store untouched.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemoryStore) Settings(ctx context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, ctx.Err()
}

func (m *MemoryStore) Get(ctx context.Context, t target.Target) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.jobs[t]
	if !ok {
		return Record{}, NewNotFoundError("job", string(t))
	}
	return copyRecord(rec), nil
}

func (m *MemoryStore) PutStatus(ctx context.Context, t target.Target, status Status) error {
	return m.mutate(ctx, func() error { return putStatus(m.jobs, t, status) })
}

func (m *MemoryStore) PutTimestamps(ctx context.Context, t target.Target, start, stop *time.Time) error {
	return m.mutate(ctx, func() error { return putTimestamps(m.jobs, t, start, stop) })
}

func (m *MemoryStore) Transition(ctx context.Context, t target.Target, status Status, at time.Time) error {
	return m.mutate(ctx, func() error { return transition(m.jobs, t, status, at) })
}

func (m *MemoryStore) Retry(ctx context.Context, t target.Target, at time.Time) error {
	return m.mutate(ctx, func() error { return retry(m.jobs, t, at) })
}

func (m *MemoryStore) Pending(ctx context.Context, includeTimeout bool) ([]target.Target, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return pending(m.jobs, includeTimeout), nil
}

func (m *MemoryStore) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedRecords(m.jobs), nil
}

func (m *MemoryStore) mutate(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	m.writes++
	return nil
}
