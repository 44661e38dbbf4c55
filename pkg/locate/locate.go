// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package locate finds scanner executables on the search path or on disk.
package locate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrNotFound is returned when no executable with the requested name exists.
var ErrNotFound = errors.New("executable not found")

// NotFoundError carries the name and search root of a failed lookup.
type NotFoundError struct {
	Name       string
	SearchRoot string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find %s under %s", e.Name, e.SearchRoot)
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Locate returns the path of the executable called name. PATH is consulted
// first; after that searchRoot is walked (default "/"). Unreadable
// directories are skipped.
func Locate(name, searchRoot string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	return Walk(name, searchRoot)
}

// OnPath looks name up on PATH only.
func OnPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", &NotFoundError{Name: name, SearchRoot: "PATH"}
	}
	return path, nil
}

// Walk searches searchRoot only, ignoring PATH.
func Walk(name, searchRoot string) (string, error) {
	if searchRoot == "" {
		searchRoot = string(filepath.Separator)
	}

	var found string
	err := filepath.WalkDir(searchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != searchRoot {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Name() != name {
			return nil
		}
		if isExecutable(path) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", searchRoot, err)
	}
	if found == "" {
		return "", &NotFoundError{Name: name, SearchRoot: searchRoot}
	}
	return found, nil
}

// Resolve interprets a user supplied path hint. An executable file is used
// as-is; anything else (usually a parent directory) becomes the search
// root. An empty hint falls back to Locate with defaultRoot.
func Resolve(name, hint, defaultRoot string) (string, error) {
	if hint == "" {
		return Locate(name, defaultRoot)
	}
	if info, err := os.Stat(hint); err == nil && !info.IsDir() && isExecutable(hint) {
		return filepath.Abs(hint)
	}
	return Walk(name, hint)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
