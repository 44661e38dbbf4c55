// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package artifact

import (
	"errors"
	"fmt"

	"github.com/vulntor/sslartifact/pkg/target"
)

var (
	// ErrInit is returned when a new run cannot be set up.
	ErrInit = errors.New("cannot initialize run")

	// ErrResume is returned when a persisted run cannot be loaded.
	ErrResume = errors.New("cannot resume run")

	// ErrInterrupted is returned by Execute when its context was canceled
	// before every pending target finished.
	ErrInterrupted = errors.New("run interrupted")
)

// InitError reports why StartRun failed.
type InitError struct {
	Path string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize run at %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrInit and the cause to errors.Is.
func (e *InitError) Unwrap() []error { return []error{ErrInit, e.Err} }

// ResumeError reports why ResumeRun failed.
type ResumeError struct {
	Path string
	Err  error
}

func (e *ResumeError) Error() string {
	return fmt.Sprintf("resume run from %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrResume and the cause to errors.Is.
func (e *ResumeError) Unwrap() []error { return []error{ErrResume, e.Err} }

// TargetError is a failure confined to one target. Sibling targets keep
// running and the target's record stays In Progress.
type TargetError struct {
	Target target.Target
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s generated an exception: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// IsInit checks if an error is or wraps ErrInit.
func IsInit(err error) bool { return errors.Is(err, ErrInit) }

// IsResume checks if an error is or wraps ErrResume.
func IsResume(err error) bool { return errors.Is(err, ErrResume) }

// IsInterrupted checks if an error is or wraps ErrInterrupted.
func IsInterrupted(err error) bool { return errors.Is(err, ErrInterrupted) }

// TargetErrors extracts every TargetError joined or wrapped into err.
func TargetErrors(err error) []*TargetError {
	switch e := err.(type) {
	case nil:
		return nil
	case *TargetError:
		return []*TargetError{e}
	case interface{ Unwrap() []error }:
		var out []*TargetError
		for _, inner := range e.Unwrap() {
			out = append(out, TargetErrors(inner)...)
		}
		return out
	}
	return TargetErrors(errors.Unwrap(err))
}
