// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package target models scan endpoints and builds deduplicated target sets
// from scanner reports and plain lists.
package target

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidTarget is returned for targets that cannot be scanned safely.
var ErrInvalidTarget = errors.New("invalid target")

// Target is a scan endpoint, a host optionally followed by :port.
// Its identity is the trimmed string form.
type Target string

// New trims surrounding whitespace and returns the target. Empty input
// yields an empty target, which callers treat as "skip".
func New(raw string) Target {
	return Target(strings.TrimSpace(raw))
}

// String returns the target as given to the scanner.
func (t Target) String() string { return string(t) }

// Sanitized returns a filesystem safe name for artifacts of this target.
func (t Target) Sanitized() string {
	return sanitizer.Replace(string(t))
}

var sanitizer = strings.NewReplacer(":", "_", "/", "_", "\\", "_")

// Validate rejects targets a scanner would read as an option and targets
// whose artifact name would be hidden or refer to the output directory.
func (t Target) Validate() error {
	s := string(t)
	switch {
	case s == "":
		return fmt.Errorf("%w: empty", ErrInvalidTarget)
	case strings.HasPrefix(s, "-"):
		return fmt.Errorf("%w: %q starts with '-'", ErrInvalidTarget, s)
	case strings.ContainsAny(s, " \t\r\n"):
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidTarget, s)
	case strings.HasPrefix(t.Sanitized(), "."):
		return fmt.Errorf("%w: %q starts with '.'", ErrInvalidTarget, s)
	}
	return nil
}

// CheckArtifactNames validates every target and makes sure no two targets,
// and no target and a reserved name, share an artifact file name.
func CheckArtifactNames(targets []Target, reserved ...string) error {
	owners := make(map[string]Target, len(targets)+len(reserved))
	for _, name := range reserved {
		owners[name] = ""
	}

	var errs []error
	for _, t := range targets {
		if err := t.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		name := t.Sanitized()
		other, taken := owners[name]
		switch {
		case !taken:
			owners[name] = t
		case other == "":
			errs = append(errs, fmt.Errorf("%w: %q: artifact name %q is reserved", ErrInvalidTarget, t, name))
		default:
			errs = append(errs, fmt.Errorf("%w: %q and %q share artifact name %q", ErrInvalidTarget, other, t, name))
		}
	}
	return errors.Join(errs...)
}

// Set is a deduplicated collection of targets.
type Set map[Target]struct{}

// NewSet builds a set from the given targets, dropping empty entries.
func NewSet(targets ...Target) Set {
	s := make(Set, len(targets))
	s.Add(targets...)
	return s
}

// Add inserts targets into the set, ignoring empty ones.
func (s Set) Add(targets ...Target) {
	for _, t := range targets {
		if t == "" {
			continue
		}
		s[t] = struct{}{}
	}
}

// Has reports whether t is in the set.
func (s Set) Has(t Target) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the set members in lexical order.
func (s Set) Sorted() []Target {
	out := make([]Target, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings converts targets to plain strings.
func Strings(targets []Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = string(t)
	}
	return out
}
