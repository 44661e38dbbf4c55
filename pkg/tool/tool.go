// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package tool describes the external SSL/TLS scanners the orchestrator can
// drive: their command lines, output layout and time limits.
package tool

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/vulntor/sslartifact/pkg/target"
)

// ErrUnknownTool is returned by Lookup for an unsupported scanner name.
var ErrUnknownTool = errors.New("unknown tool")

// Invocation is everything needed to run a scanner against one target.
type Invocation struct {
	Args []string
	// StdoutFile, when set, receives the process's standard output.
	StdoutFile string
}

// Tool is one supported scanner.
type Tool struct {
	// Name is the executable name and the value persisted in scan settings.
	Name string
	// Subdirs are created under the output directory before a run.
	Subdirs []string
	// Timeout bounds a single target scan. Zero leaves limits to the tool.
	Timeout time.Duration
	// VersionArgs make the tool print its version.
	VersionArgs []string
	// MinVersion is a semver constraint the installed tool should satisfy.
	MinVersion string

	build func(outDir string, t target.Target) Invocation
}

// Invocation returns the argv and stdout redirection for scanning t.
func (tl Tool) Invocation(outDir string, t target.Target) Invocation {
	return tl.build(outDir, t)
}

// WithTimeout returns a copy of the tool using the given per-target timeout.
func (tl Tool) WithTimeout(d time.Duration) Tool {
	tl.Timeout = d
	return tl
}

const (
	SSLScan = "sslscan"
	TestSSL = "testssl.sh"
)

// DefaultTestSSLTimeout is the hard limit for testssl.sh, which can hang on
// some endpoints.
const DefaultTestSSLTimeout = 240 * time.Second

var registry = map[string]Tool{
	SSLScan: {
		Name:        SSLScan,
		Subdirs:     []string{"xml"},
		VersionArgs: []string{"--version"},
		MinVersion:  ">= 1.11.0-0",
		build: func(outDir string, t target.Target) Invocation {
			name := t.Sanitized()
			return Invocation{
				Args: []string{
					"--no-failed",
					"--xml=" + filepath.Join(outDir, "xml", name+".xml"),
					t.String(),
				},
				StdoutFile: filepath.Join(outDir, name),
			}
		},
	},
	TestSSL: {
		Name:        TestSSL,
		Subdirs:     []string{"csv", "json"},
		Timeout:     DefaultTestSSLTimeout,
		VersionArgs: []string{"--version"},
		MinVersion:  ">= 3.0.0-0",
		build: func(outDir string, t target.Target) Invocation {
			name := t.Sanitized()
			return Invocation{
				Args: []string{
					"--warnings", "off",
					"--overwrite",
					"--csvfile", filepath.Join(outDir, "csv", name+".csv"),
					"--jsonfile", filepath.Join(outDir, "json", name+".json"),
					"--logfile", filepath.Join(outDir, name),
					t.String(),
				},
			}
		},
	},
}

// Lookup returns the tool registered under name.
func Lookup(name string) (Tool, error) {
	tl, ok := registry[name]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tl, nil
}

// Names lists the supported tools in lexical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
