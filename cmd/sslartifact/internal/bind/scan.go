package bind

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/vulntor/sslartifact/pkg/config"
	"github.com/vulntor/sslartifact/pkg/jobstore"
	"github.com/vulntor/sslartifact/pkg/target"
	"github.com/vulntor/sslartifact/pkg/tool"
)

var validate = validator.New()

// ErrInvalidOptions is wrapped by every ValidationError.
var ErrInvalidOptions = errors.New("invalid options")

// ValidationError names the offending flag.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed"
	}
	return "--" + e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrInvalidOptions }

// ScanOptions holds the validated options of one scan invocation. Either
// Resume is set, or Format and Inputs describe where targets come from.
type ScanOptions struct {
	Resume        string
	Format        target.Format
	Inputs        []string
	OutputDir     string
	Program       string
	Path          string
	SearchRoot    string
	Threads       int
	Timeouts      map[string]time.Duration
	RetryTimeouts bool
}

// Resuming reports whether the options continue an existing run.
func (o ScanOptions) Resuming() bool { return o.Resume != "" }

// BindScanOptions extracts and validates scan flags from the command.
// Threads, program, path, output directory and search root come from cfg,
// which already carries any flag overrides. Positional arguments are extra
// input files, so a shell-expanded "-i *.nessus" works.
func BindScanOptions(cmd *cobra.Command, args []string, cfg config.Config) (ScanOptions, error) {
	flags := cmd.Flags()
	format, _ := flags.GetString("type")
	inputs, _ := flags.GetStringArray("input")
	resume, _ := flags.GetString("resume")
	retry, _ := flags.GetBool("retry-timeouts")

	opts := ScanOptions{
		Format:        target.Format(strings.ToLower(strings.TrimSpace(format))),
		Inputs:        append(append([]string(nil), inputs...), args...),
		OutputDir:     cfg.Scan.OutputDir,
		Program:       cfg.Scan.Program,
		Path:          cfg.Scan.Path,
		SearchRoot:    cfg.Scan.SearchRoot,
		Threads:       cfg.Scan.Threads,
		RetryTimeouts: retry,
	}

	timeouts, err := cfg.Scan.Timeouts()
	if err != nil {
		return opts, &ValidationError{Field: "timeout", Reason: err.Error()}
	}
	if flags.Changed("timeout") {
		raw, _ := flags.GetString("timeout")
		d, err := config.ParseTimeout(raw)
		if err != nil {
			return opts, &ValidationError{Field: "timeout", Reason: "must be non-negative seconds or a duration like 4m"}
		}
		// A run uses exactly one tool, so the override applies to whichever it is.
		for _, name := range tool.Names() {
			timeouts[name] = d
		}
	}
	opts.Timeouts = timeouts

	if err := validate.Var(opts.Threads, "min=1"); err != nil {
		return opts, &ValidationError{Field: "threads", Reason: "must be at least 1, got " + strconv.Itoa(opts.Threads)}
	}

	if resume != "" {
		if len(opts.Inputs) > 0 || flags.Changed("type") {
			return opts, &ValidationError{Field: "resume", Reason: "cannot be combined with --type or --input"}
		}
		opts.Resume = StorePath(resume)
		return opts, nil
	}

	if err := validate.Var(string(opts.Format), "oneof=nessus nmap list"); err != nil {
		return opts, &ValidationError{Field: "type", Reason: "must be one of: nessus, nmap, list"}
	}
	if len(opts.Inputs) == 0 {
		return opts, &ValidationError{Field: "input", Reason: "at least one input file is required"}
	}
	if err := validate.Var(opts.Program, "oneof=sslscan testssl.sh"); err != nil {
		return opts, &ValidationError{Field: "program", Reason: "must be one of: " + strings.Join(tool.Names(), ", ")}
	}

	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir(time.Now())
	}
	return opts, nil
}

// DefaultOutputDir is ssl_artifacts_<unix seconds> in the working directory.
func DefaultOutputDir(now time.Time) string {
	name := "ssl_artifacts_" + strconv.FormatInt(now.Unix(), 10)
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, name)
	}
	return name
}

// StorePath accepts either the store file or the run's output directory.
func StorePath(p string) string {
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return filepath.Join(p, jobstore.DefaultFileName)
	}
	return p
}
