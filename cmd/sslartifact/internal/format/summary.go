// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/vulntor/sslartifact/pkg/stringutil"
)

// Summary represents the outcome of a scan run for consistent formatting
type Summary struct {
	RunID     string
	StorePath string
	Total     int
	Completed int
	TimedOut  int
	Failed    int
	Abandoned int
	Duration  time.Duration
	Errors    []ErrorDetail // First N errors (truncated for display)

	// Interrupted marks a run stopped by a signal; the resume hint is shown.
	Interrupted bool
}

// ErrorDetail represents a single error with context
type ErrorDetail struct {
	Target    string // Scan target (host:port)
	Error     string // Error message
	ErrorCode string // Error code for suggestion mapping
}

const (
	maxErrorsToShow = 5   // Maximum errors to display before truncating
	maxErrorWidth   = 120 // Longer messages are shortened in table mode
)

// Error codes with suggestion mappings.
const (
	CodeToolNotFound  = "TOOL_NOT_FOUND"
	CodeStoreNotFound = "STORE_NOT_FOUND"
	CodeTimeout       = "TIMEOUT"
	CodeInterrupted   = "INTERRUPTED"
	CodeTargetFailure = "TARGET_FAILURE"
)

// PrintRunSummary prints counts, the first failures and follow-up hints.
// Example output:
//
//	Summary:
//	  ✓ Completed: 12
//	  ⚠ Timeout:   1
//	  ✗ Failed:    1
//
//	Failed targets:
//	  - 10.0.0.5:443: exec: permission denied
//
//	💡 Suggestions:
//	  → Retry timed out targets:  sslartifact scan --resume /out/ssl_artifacting.json --retry-timeouts
func (f *formatter) PrintRunSummary(summary Summary) error {
	if f.quiet {
		return nil
	}

	if f.mode == ModeJSON || f.mode == ModeYAML {
		return f.PrintData(map[string]any{
			"run_id":      summary.RunID,
			"store":       summary.StorePath,
			"total":       summary.Total,
			"completed":   summary.Completed,
			"timeout":     summary.TimedOut,
			"failed":      summary.Failed,
			"abandoned":   summary.Abandoned,
			"duration":    summary.Duration.String(),
			"interrupted": summary.Interrupted,
			"errors":      summary.Errors,
		})
	}

	var sb strings.Builder
	line := func(c color.Attribute, format string, args ...any) {
		if f.color {
			sb.WriteString(color.New(c).Sprintf(format, args...))
			return
		}
		sb.WriteString(fmt.Sprintf(format, args...))
	}

	sb.WriteString("\nSummary:\n")
	line(color.FgGreen, "  ✓ Completed: %d\n", summary.Completed)
	if summary.TimedOut > 0 {
		line(color.FgYellow, "  ⚠ Timeout:   %d\n", summary.TimedOut)
	}
	if summary.Failed > 0 {
		line(color.FgRed, "  ✗ Failed:    %d\n", summary.Failed)
	}
	if summary.Abandoned > 0 {
		line(color.FgYellow, "  … Pending:   %d\n", summary.Abandoned)
	}
	sb.WriteString(fmt.Sprintf("  Duration:    %s\n", summary.Duration.Round(time.Millisecond)))

	if len(summary.Errors) > 0 {
		sb.WriteString("\nFailed targets:\n")
		for i, err := range summary.Errors {
			if i >= maxErrorsToShow {
				sb.WriteString(fmt.Sprintf("  ... and %d more (see the log output)\n", len(summary.Errors)-maxErrorsToShow))
				break
			}
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Target, stringutil.Ellipsis(err.Error, maxErrorWidth)))
		}
	}

	var codes []string
	if summary.Interrupted {
		codes = append(codes, CodeInterrupted)
	}
	if summary.TimedOut > 0 {
		codes = append(codes, CodeTimeout)
	}
	if suggestions := collectSuggestions(codes, summary.StorePath); len(suggestions) > 0 {
		sb.WriteString("\n💡 Suggestions:\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("  → %s\n", s))
		}
	}

	_, err := f.stdout.Write([]byte(sb.String()))
	return err
}

// GetSuggestions returns actionable hints based on error code. store is
// the job store path, when known.
func GetSuggestions(errorCode, store string) []string {
	if store == "" {
		store = "<output-dir>/ssl_artifacting.json"
	}

	switch errorCode {
	case CodeToolNotFound:
		return []string{
			"Point at the scanner:     sslartifact scan --path /path/to/scanner ...",
			"List detected scanners:   sslartifact tools",
		}
	case CodeStoreNotFound:
		return []string{
			"The store is ssl_artifacting.json inside the run's output directory",
		}
	case CodeInterrupted:
		return []string{
			"Resume the run:           sslartifact scan --resume " + store,
		}
	case CodeTimeout:
		return []string{
			"Retry timed out targets:  sslartifact scan --resume " + store + " --retry-timeouts",
		}
	}
	return nil
}

// collectSuggestions gathers unique suggestions for several error codes
func collectSuggestions(codes []string, store string) []string {
	seen := make(map[string]bool)
	var suggestions []string

	for _, code := range codes {
		for _, hint := range GetSuggestions(code, store) {
			if !seen[hint] {
				seen[hint] = true
				suggestions = append(suggestions, hint)
			}
		}
	}

	return suggestions
}
