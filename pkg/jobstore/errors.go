// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package jobstore

import (
	"errors"
	"fmt"

	"github.com/vulntor/sslartifact/pkg/target"
)

// Common errors returned by store operations.
var (
	// ErrNotFound is returned when the store or a job record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a store over an existing one.
	ErrAlreadyExists = errors.New("already exists")

	// ErrMalformed is returned when a store document cannot be decoded or fails validation.
	ErrMalformed = errors.New("malformed store")

	// ErrInvalidTransition is returned for a status change the job lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// NotFoundError wraps ErrNotFound with the missing resource.
type NotFoundError struct {
	ResourceType string // "store" or "job"
	ResourceID   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.ResourceType, e.ResourceID)
}

// Unwrap returns the underlying error.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// MalformedError wraps ErrMalformed with the offending path and reason.
type MalformedError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed store %s: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying error.
func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

// TransitionError wraps ErrInvalidTransition with the rejected change.
type TransitionError struct {
	Target target.Target
	From   Status
	To     Status
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %s: cannot move from %q to %q", e.Target, e.From, e.To)
}

// Unwrap returns the underlying error.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resourceType, resourceID string) error {
	return &NotFoundError{ResourceType: resourceType, ResourceID: resourceID}
}

// NewMalformedError creates a MalformedError.
func NewMalformedError(path, reason string) error {
	return &MalformedError{Path: path, Reason: reason}
}

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is or wraps ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsMalformed checks if an error is or wraps ErrMalformed.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// IsInvalidTransition checks if an error is or wraps ErrInvalidTransition.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
