// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package artifact

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Command is one scanner invocation.
type Command struct {
	Path string
	Args []string
	// StdoutFile receives standard output when set; otherwise it is discarded.
	StdoutFile string
}

// Process is a started scanner.
type Process interface {
	// Wait blocks until the process exits. A non-zero exit status is not an
	// error: the scanner ran and wrote whatever artifacts it could.
	Wait() error
	// Kill terminates the process and anything it spawned.
	Kill() error
}

// Launcher starts scanner processes.
type Launcher interface {
	Start(cmd Command) (Process, error)
}

// ExecLauncher runs commands as real subprocesses. Each one gets its own
// process group so an interrupt delivered to the terminal does not reach it
// and a timeout kill takes its children down too.
type ExecLauncher struct{}

var _ Launcher = ExecLauncher{}

// Start implements Launcher.
func (ExecLauncher) Start(c Command) (Process, error) {
	cmd := exec.Command(c.Path, c.Args...)
	configureProcess(cmd)

	var out *os.File
	if c.StdoutFile != "" {
		f, err := os.Create(c.StdoutFile)
		if err != nil {
			return nil, fmt.Errorf("create output %s: %w", c.StdoutFile, err)
		}
		out = f
		cmd.Stdout = f
	}

	if err := cmd.Start(); err != nil {
		if out != nil {
			out.Close()
		}
		return nil, fmt.Errorf("start %s: %w", c.Path, err)
	}
	return &execProcess{cmd: cmd, out: out}, nil
}

type execProcess struct {
	cmd *exec.Cmd
	out *os.File
}

func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	if p.out != nil {
		if cerr := p.out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func (p *execProcess) Kill() error {
	return killProcess(p.cmd)
}
