// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package artifact drives an external SSL/TLS scanner over a set of
// targets with a bounded worker pool, persisting per-target status so an
// interrupted run can be resumed.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vulntor/sslartifact/pkg/jobstore"
	"github.com/vulntor/sslartifact/pkg/target"
	"github.com/vulntor/sslartifact/pkg/tool"
)

// DefaultConcurrency is the worker count used when none is configured.
const DefaultConcurrency = 10

// StoreOpener returns a store handle. Workers call it once per target so
// that no handle is shared between them.
type StoreOpener func(ctx context.Context) (jobstore.Store, error)

// RunHandle is a started or resumed run: its settings and the targets that
// still need scanning.
type RunHandle struct {
	Settings  jobstore.Settings
	StorePath string
	Pending   []target.Target

	tool          tool.Tool
	open          StoreOpener
	retryTimeouts bool
}

// Tool returns the scanner integration of the run.
func (h *RunHandle) Tool() tool.Tool { return h.tool }

// ResumeOptions tune ResumeRun.
type ResumeOptions struct {
	// RetryTimeouts re-enqueues targets whose last attempt timed out.
	RetryTimeouts bool
}

// Orchestrator creates, resumes and executes runs.
type Orchestrator struct {
	launcher Launcher
	sink     ProgressSink
	timeouts map[string]time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewOrchestrator builds an Orchestrator that runs real subprocesses.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		launcher: ExecLauncher{},
		timeouts: map[string]time.Duration{},
		now:      time.Now,
		logger:   log.With().Str("component", "artifact").Logger(),
	}
}

// WithLauncher replaces the process launcher (useful for tests).
func (o *Orchestrator) WithLauncher(l Launcher) *Orchestrator {
	o.launcher = l
	return o
}

// WithProgressSink attaches a sink for per-target start/stop events.
func (o *Orchestrator) WithProgressSink(sink ProgressSink) *Orchestrator {
	o.sink = sink
	return o
}

// WithTimeout overrides the per-target timeout of a tool. Zero disables it.
func (o *Orchestrator) WithTimeout(toolName string, d time.Duration) *Orchestrator {
	o.timeouts[toolName] = d
	return o
}

// WithClock replaces the time source used for start/stop timestamps.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// WithLogger replaces the component logger.
func (o *Orchestrator) WithLogger(l zerolog.Logger) *Orchestrator {
	o.logger = l
	return o
}

// StartRun creates the output directory and a new store inside it holding
// the scan settings and one Not Started record per unique target. Targets
// are validated first; artifact names may not clash with each other or with
// the store's files.
func (o *Orchestrator) StartRun(ctx context.Context, targets target.Set, toolName, toolPath, outputDir string) (*RunHandle, error) {
	tl, err := tool.Lookup(toolName)
	if err != nil {
		return nil, &InitError{Path: outputDir, Err: err}
	}

	ordered := targets.Sorted()
	reserved := append(jobstore.ReservedNames(), tl.Subdirs...)
	if err := target.CheckArtifactNames(ordered, reserved...); err != nil {
		return nil, &InitError{Path: outputDir, Err: err}
	}

	absDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, &InitError{Path: outputDir, Err: err}
	}
	if err := os.MkdirAll(absDir, 0o750); err != nil {
		return nil, &InitError{Path: absDir, Err: fmt.Errorf("create output directory: %w", err)}
	}

	settings := jobstore.Settings{
		RunID:           uuid.NewString(),
		ToolName:        tl.Name,
		ToolPath:        toolPath,
		OutputDirectory: absDir,
		CreatedAt:       o.now().UTC(),
	}

	storePath := filepath.Join(absDir, jobstore.DefaultFileName)
	if _, err := jobstore.Create(ctx, storePath, settings, ordered); err != nil {
		return nil, &InitError{Path: storePath, Err: err}
	}

	o.logger.Info().
		Str("run_id", settings.RunID).
		Str("store", storePath).
		Int("targets", len(ordered)).
		Msg("Run created")

	return &RunHandle{
		Settings:  settings,
		StorePath: storePath,
		Pending:   ordered,
		tool:      o.configure(tl),
		open:      fileOpener(storePath),
	}, nil
}

// ResumeRun loads a store written by StartRun and returns the targets that
// are not yet in a terminal status.
func (o *Orchestrator) ResumeRun(ctx context.Context, storePath string, opts ResumeOptions) (*RunHandle, error) {
	store, err := jobstore.Open(ctx, storePath)
	if err != nil {
		return nil, &ResumeError{Path: storePath, Err: err}
	}
	h, err := o.resume(ctx, store, opts)
	if err != nil {
		return nil, &ResumeError{Path: storePath, Err: err}
	}
	h.StorePath = store.Path()
	h.open = fileOpener(store.Path())
	return h, nil
}

// ResumeStore is ResumeRun over an already opened store. Every worker
// shares the given handle.
func (o *Orchestrator) ResumeStore(ctx context.Context, store jobstore.Store, opts ResumeOptions) (*RunHandle, error) {
	h, err := o.resume(ctx, store, opts)
	if err != nil {
		return nil, &ResumeError{Path: "<memory>", Err: err}
	}
	h.open = func(context.Context) (jobstore.Store, error) { return store, nil }
	return h, nil
}

func (o *Orchestrator) resume(ctx context.Context, store jobstore.Store, opts ResumeOptions) (*RunHandle, error) {
	settings, err := store.Settings(ctx)
	if err != nil {
		return nil, err
	}
	tl, err := tool.Lookup(settings.ToolName)
	if err != nil {
		return nil, err
	}
	pending, err := store.Pending(ctx, opts.RetryTimeouts)
	if err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("run_id", settings.RunID).
		Int("pending", len(pending)).
		Bool("retry_timeouts", opts.RetryTimeouts).
		Msg("Run resumed")

	return &RunHandle{
		Settings:      settings,
		Pending:       pending,
		tool:          o.configure(tl),
		retryTimeouts: opts.RetryTimeouts,
	}, nil
}

func (o *Orchestrator) configure(tl tool.Tool) tool.Tool {
	if d, ok := o.timeouts[tl.Name]; ok {
		return tl.WithTimeout(d)
	}
	return tl
}

func fileOpener(path string) StoreOpener {
	return func(ctx context.Context) (jobstore.Store, error) {
		return jobstore.Open(ctx, path)
	}
}

// Execute scans every pending target of h with a pool of concurrency
// workers (minimum 1). Failures of single targets are collected and
// returned joined; they never stop other workers. Canceling ctx stops
// dispatch and abandons running scanners without killing them; their
// records stay In Progress and Execute returns ErrInterrupted.
func (o *Orchestrator) Execute(ctx context.Context, h *RunHandle, concurrency int) (Summary, error) {
	started := o.now()
	summary := Summary{Total: len(h.Pending)}
	if len(h.Pending) == 0 {
		o.logger.Info().Msg("Nothing to scan")
		return summary, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	if err := ensureLayout(h.Settings.OutputDirectory, h.tool.Subdirs); err != nil {
		return summary, err
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	jobs := make(chan target.Target)

	record := func(oc outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		summary.add(oc)
		if err != nil {
			errs = append(errs, err)
		}
	}

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger := o.logger.With().Int("worker_id", id).Logger()
			for t := range jobs {
				record(o.scan(ctx, h, t, logger))
			}
		}(i)
	}

dispatch:
	for _, t := range h.Pending {
		// Cooperative cancellation: nothing new is handed out once ctx is done.
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- t:
		}
	}
	close(jobs)
	wg.Wait()

	// Targets never handed to a worker count as abandoned too.
	summary.Abandoned = summary.Total - summary.Completed - summary.TimedOut - summary.Failed
	summary.Duration = o.now().Sub(started)
	o.logger.Info().
		Int("total", summary.Total).
		Int("completed", summary.Completed).
		Int("timeout", summary.TimedOut).
		Int("failed", summary.Failed).
		Int("abandoned", summary.Abandoned).
		Dur("duration", summary.Duration).
		Msg("Run finished")

	if ctx.Err() != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err()))
	}
	return summary, errors.Join(errs...)
}

func ensureLayout(outDir string, subdirs []string) error {
	for _, sub := range subdirs {
		if err := os.MkdirAll(filepath.Join(outDir, sub), 0o750); err != nil {
			return fmt.Errorf("create output subdirectory %q: %w", sub, err)
		}
	}
	return nil
}

// scan runs the tool against one target and records the outcome.
func (o *Orchestrator) scan(ctx context.Context, h *RunHandle, t target.Target, logger zerolog.Logger) (outcome, error) {
	logger = logger.With().Str("target", t.String()).Logger()

	if ctx.Err() != nil {
		return outcomeAbandoned, nil
	}

	store, err := h.open(ctx)
	if err != nil {
		return o.fail(t, logger, fmt.Errorf("open store: %w", err))
	}

	startedAt := o.now()
	if err := o.markStarted(ctx, h, store, t, startedAt); err != nil {
		if ctx.Err() != nil {
			return outcomeAbandoned, nil
		}
		return o.fail(t, logger, fmt.Errorf("mark in progress: %w", err))
	}
	o.emit(ProgressEvent{Target: t, Phase: PhaseStart, Status: jobstore.StatusInProgress, Time: startedAt})
	logger.Debug().Time("start", startedAt).Msg("Scan started")

	inv := h.tool.Invocation(h.Settings.OutputDirectory, t)
	proc, err := o.launcher.Start(Command{Path: h.Settings.ToolPath, Args: inv.Args, StdoutFile: inv.StdoutFile})
	if err != nil {
		return o.fail(t, logger, err)
	}

	done := make(chan error, 1)
	go func() { done <- proc.Wait() }()

	var timeout <-chan time.Time
	if h.tool.Timeout > 0 {
		timer := time.NewTimer(h.tool.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	// The final write must land even if an interrupt arrives right now.
	writeCtx := context.WithoutCancel(ctx)

	select {
	case err := <-done:
		if err != nil {
			return o.fail(t, logger, fmt.Errorf("wait: %w", err))
		}
		return o.finish(writeCtx, store, t, jobstore.StatusCompleted, logger)

	case <-timeout:
		if err := proc.Kill(); err != nil {
			logger.Warn().Err(err).Msg("Failed to kill timed out scanner")
		}
		<-done
		return o.finish(writeCtx, store, t, jobstore.StatusTimeout, logger)

	case <-ctx.Done():
		logger.Warn().Msg("Scan abandoned, record left in progress")
		return outcomeAbandoned, nil
	}
}

func (o *Orchestrator) markStarted(ctx context.Context, h *RunHandle, store jobstore.Store, t target.Target, at time.Time) error {
	if h.retryTimeouts {
		return store.Retry(ctx, t, at)
	}
	return store.Transition(ctx, t, jobstore.StatusInProgress, at)
}

func (o *Orchestrator) finish(ctx context.Context, store jobstore.Store, t target.Target, status jobstore.Status, logger zerolog.Logger) (outcome, error) {
	stoppedAt := o.now()
	if err := store.Transition(ctx, t, status, stoppedAt); err != nil {
		return o.fail(t, logger, fmt.Errorf("mark %s: %w", status, err))
	}
	o.emit(ProgressEvent{Target: t, Phase: PhaseStop, Status: status, Time: stoppedAt})
	logger.Debug().Str("status", string(status)).Time("stop", stoppedAt).Msg("Scan stopped")

	if status == jobstore.StatusTimeout {
		return outcomeTimeout, nil
	}
	return outcomeCompleted, nil
}

func (o *Orchestrator) fail(t target.Target, logger zerolog.Logger, err error) (outcome, error) {
	logger.Error().Err(err).Msg("Scan failed")
	o.emit(ProgressEvent{Target: t, Phase: PhaseStop, Status: jobstore.StatusInProgress, Time: o.now(), Err: err})
	return outcomeFailed, &TargetError{Target: t, Err: err}
}

func (o *Orchestrator) emit(ev ProgressEvent) {
	if o.sink != nil {
		o.sink.OnEvent(ev)
	}
}
