package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/sslartifact/cmd/sslartifact/internal/bind"
	"github.com/vulntor/sslartifact/cmd/sslartifact/internal/format"
	"github.com/vulntor/sslartifact/pkg/jobstore"
)

// statusReport is the structured form of a run's progress.
type statusReport struct {
	RunID           string         `json:"run_id" yaml:"run_id"`
	Tool            string         `json:"tool" yaml:"tool"`
	ToolPath        string         `json:"tool_path" yaml:"tool_path"`
	OutputDirectory string         `json:"output_directory" yaml:"output_directory"`
	CreatedAt       time.Time      `json:"created_at" yaml:"created_at"`
	Counts          map[string]int `json:"counts" yaml:"counts"`
	Jobs            []statusJob    `json:"jobs" yaml:"jobs"`
}

type statusJob struct {
	Target string     `json:"target" yaml:"target"`
	Status string     `json:"status" yaml:"status"`
	Start  *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	Stop   *time.Time `json:"stop,omitempty" yaml:"stop,omitempty"`
}

// NewStatusCommand returns the status command, which reports the progress
// of a run from its job store.
func NewStatusCommand() *cobra.Command {
	var (
		output string
		follow bool
	)

	cmd := &cobra.Command{
		Use:     "status STORE",
		Short:   "Show per-target progress of a run",
		GroupID: "scan",
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := format.ValidateMode(output); err != nil {
				return usageError(err)
			}
			path := bind.StorePath(args[0])
			f := format.FromCommand(cmd)

			if !follow {
				return printStatus(cmd.Context(), cmd, f, path)
			}
			return followStatus(cmd, f, path)
		},
	}

	cmd.Flags().StringVarP(&output, "format", "o", "text", "Output format: text, json, yaml")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Print again whenever the store changes")

	return cmd
}

func followStatus(cmd *cobra.Command, f format.Formatter, path string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := jobstore.NewWatcher(path, log.Logger)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if err := printStatus(ctx, cmd, f, path); err != nil {
		watcher.Close() //nolint:errcheck
		return err
	}

	var mu sync.Mutex
	err = watcher.Start(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		if err := printStatus(ctx, cmd, f, path); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("store", path).Msg("Could not read store")
		}
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func printStatus(ctx context.Context, cmd *cobra.Command, f format.Formatter, path string) error {
	store, err := jobstore.Open(ctx, path)
	if err != nil {
		return err
	}
	settings, err := store.Settings(ctx)
	if err != nil {
		return err
	}
	records, err := store.Records(ctx)
	if err != nil {
		return err
	}

	report := statusReport{
		RunID:           settings.RunID,
		Tool:            settings.ToolName,
		ToolPath:        settings.ToolPath,
		OutputDirectory: settings.OutputDirectory,
		CreatedAt:       settings.CreatedAt,
		Counts:          map[string]int{},
		Jobs:            make([]statusJob, 0, len(records)),
	}
	for status, n := range jobstore.Counts(records) {
		report.Counts[string(status)] = n
	}
	for _, r := range records {
		report.Jobs = append(report.Jobs, statusJob{Target: r.Target.String(), Status: string(r.Status), Start: r.Start, Stop: r.Stop})
	}

	if f.Mode() != format.ModeTable {
		return f.PrintData(report)
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Run %s  %s (%s)\nOutput: %s\n\n", report.RunID, report.Tool, report.ToolPath, report.OutputDirectory)

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Target.String(), string(r.Status), clock(r.Start), clock(r.Stop), elapsed(r)})
	}
	if err := f.PrintTable([]string{"Target", "Status", "Start", "Stop", "Duration"}, rows); err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "\n%d targets: %d completed, %d timeout, %d in progress, %d not started\n",
		len(records),
		report.Counts[string(jobstore.StatusCompleted)],
		report.Counts[string(jobstore.StatusTimeout)],
		report.Counts[string(jobstore.StatusInProgress)],
		report.Counts[string(jobstore.StatusNotStarted)])
	return err
}

func clock(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func elapsed(r jobstore.Record) string {
	if r.Start == nil || r.Stop == nil {
		return "-"
	}
	return r.Stop.Sub(*r.Start).Round(time.Second).String()
}
