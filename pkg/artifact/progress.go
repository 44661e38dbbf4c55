// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package artifact

import (
	"time"

	"github.com/vulntor/sslartifact/pkg/jobstore"
	"github.com/vulntor/sslartifact/pkg/target"
)

// Progress phases.
const (
	PhaseStart = "start"
	PhaseStop  = "stop"
)

// ProgressSink receives one event when a target starts and one when it stops.
type ProgressSink interface {
	OnEvent(ProgressEvent)
}

// ProgressEvent describes a target's progress.
type ProgressEvent struct {
	Target target.Target
	Phase  string
	Status jobstore.Status
	Time   time.Time
	Err    error
}

// Summary tallies the outcome of one Execute call.
type Summary struct {
	Total     int
	Completed int
	TimedOut  int
	Failed    int
	Abandoned int
	Duration  time.Duration
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeTimeout
	outcomeFailed
	outcomeAbandoned
)

func (s *Summary) add(o outcome) {
	switch o {
	case outcomeCompleted:
		s.Completed++
	case outcomeTimeout:
		s.TimedOut++
	case outcomeFailed:
		s.Failed++
	case outcomeAbandoned:
		s.Abandoned++
	}
}
