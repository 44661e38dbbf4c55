// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package jobstore persists per-target scan status so an interrupted run can
// be resumed by a later process.
package jobstore

import (
	"context"
	"sort"
	"time"

	"github.com/vulntor/sslartifact/pkg/target"
)

// Status is the lifecycle state of a job record. The string values are the
// ones written to disk.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusTimeout    Status = "Timeout"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusTimeout:
		return true
	}
	return false
}

// Terminal reports whether s ends a job's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusTimeout
}

// CanTransition reports whether a record may move from one status to another.
//
// In Progress -> In Progress re-runs a unit abandoned by an interrupted
// process. Completed and Timeout are final; a timed out record can only be
// restarted through Store.Retry.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusNotStarted:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusInProgress || to.Terminal()
	}
	return false
}

// CanRetry reports whether Store.Retry may restart a record in status from.
func CanRetry(from Status) bool {
	return from == StatusTimeout || CanTransition(from, StatusInProgress)
}

// Record is the persisted state of one target.
type Record struct {
	Target target.Target `json:"target"`
	Status Status        `json:"status"`
	Start  *time.Time    `json:"start,omitempty"`
	Stop   *time.Time    `json:"stop,omitempty"`
}

// Settings describe how a run was started. They are written once at
// creation and never modified.
type Settings struct {
	RunID           string    `json:"run_id"`
	ToolName        string    `json:"app"`
	ToolPath        string    `json:"app_path"`
	OutputDirectory string    `json:"output_directory"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store is the handle a worker uses to read and update job records. Every
// update touches exactly one record.
type Store interface {
	Settings(ctx context.Context) (Settings, error)
	Get(ctx context.Context, t target.Target) (Record, error)
	PutStatus(ctx context.Context, t target.Target, status Status) error
	PutTimestamps(ctx context.Context, t target.Target, start, stop *time.Time) error
	// Transition sets status together with its timestamp: start for In
	// Progress (clearing stop), stop for terminal statuses.
	Transition(ctx context.Context, t target.Target, status Status, at time.Time) error
	// Retry marks t In Progress like Transition, additionally accepting a
	// timed out record. It is used only when timeouts are retried.
	Retry(ctx context.Context, t target.Target, at time.Time) error
	// Pending lists targets that still need a scan, sorted.
	Pending(ctx context.Context, includeTimeout bool) ([]target.Target, error)
	Records(ctx context.Context) ([]Record, error)
}

// Counts tallies records per status.
func Counts(records []Record) map[Status]int {
	out := make(map[Status]int, 4)
	for _, r := range records {
		out[r.Status]++
	}
	return out
}

func newRecords(targets []target.Target) map[target.Target]*Record {
	jobs := make(map[target.Target]*Record, len(targets))
	for _, t := range targets {
		if t == "" {
			continue
		}
		jobs[t] = &Record{Target: t, Status: StatusNotStarted}
	}
	return jobs
}

func putStatus(jobs map[target.Target]*Record, t target.Target, status Status) error {
	rec, ok := jobs[t]
	if !ok {
		return NewNotFoundError("job", string(t))
	}
	if !CanTransition(rec.Status, status) {
		return &TransitionError{Target: t, From: rec.Status, To: status}
	}
	rec.Status = status
	return nil
}

func putTimestamps(jobs map[target.Target]*Record, t target.Target, start, stop *time.Time) error {
	rec, ok := jobs[t]
	if !ok {
		return NewNotFoundError("job", string(t))
	}
	if start != nil {
		rec.Start = utcPtr(*start)
	}
	if stop != nil {
		rec.Stop = utcPtr(*stop)
	}
	return nil
}

func transition(jobs map[target.Target]*Record, t target.Target, status Status, at time.Time) error {
	if err := putStatus(jobs, t, status); err != nil {
		return err
	}
	rec := jobs[t]
	switch {
	case status == StatusInProgress:
		rec.Start = utcPtr(at)
		rec.Stop = nil
	case status.Terminal():
		rec.Stop = utcPtr(at)
	}
	return nil
}

func retry(jobs map[target.Target]*Record, t target.Target, at time.Time) error {
	rec, ok := jobs[t]
	if !ok {
		return NewNotFoundError("job", string(t))
	}
	if !CanRetry(rec.Status) {
		return &TransitionError{Target: t, From: rec.Status, To: StatusInProgress}
	}
	rec.Status = StatusInProgress
	rec.Start = utcPtr(at)
	rec.Stop = nil
	return nil
}

func pending(jobs map[target.Target]*Record, includeTimeout bool) []target.Target {
	out := make([]target.Target, 0, len(jobs))
	for t, rec := range jobs {
		if rec.Status == StatusCompleted {
			continue
		}
		if rec.Status == StatusTimeout && !includeTimeout {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedRecords(jobs map[target.Target]*Record) []Record {
	out := make([]Record, 0, len(jobs))
	for _, rec := range jobs {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

func copyRecord(rec *Record) Record {
	c := *rec
	if rec.Start != nil {
		c.Start = utcPtr(*rec.Start)
	}
	if rec.Stop != nil {
		c.Stop = utcPtr(*rec.Stop)
	}
	return c
}

func utcPtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
