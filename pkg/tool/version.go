// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package tool

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/Masterminds/semver/v3"
)

var versionRe = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z.]+)?`)

// VersionInfo is the outcome of probing an installed scanner.
type VersionInfo struct {
	Raw       string
	Version   *semver.Version
	Supported bool
}

// ParseVersion extracts the first version-looking token from tool output
// and checks it against constraint. An empty constraint accepts anything.
func ParseVersion(output, constraint string) (VersionInfo, error) {
	info := VersionInfo{Raw: versionRe.FindString(stripANSI(output))}
	if info.Raw == "" {
		return info, fmt.Errorf("no version in output")
	}

	v, err := semver.NewVersion(info.Raw)
	if err != nil {
		return info, fmt.Errorf("parse version %q: %w", info.Raw, err)
	}
	info.Version = v

	if constraint == "" {
		info.Supported = true
		return info, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return info, fmt.Errorf("parse constraint %q: %w", constraint, err)
	}
	info.Supported = c.Check(v)
	return info, nil
}

// ProbeVersion runs the tool's version command at path.
func (tl Tool) ProbeVersion(ctx context.Context, path string) (VersionInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, tl.VersionArgs...).CombinedOutput()
	if err != nil && len(out) == 0 {
		return VersionInfo{}, fmt.Errorf("run %s %v: %w", path, tl.VersionArgs, err)
	}
	return ParseVersion(string(out), tl.MinVersion)
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}
