package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/sslartifact/cmd/sslartifact/internal/bind"
	"github.com/vulntor/sslartifact/cmd/sslartifact/internal/format"
	"github.com/vulntor/sslartifact/pkg/appctx"
	"github.com/vulntor/sslartifact/pkg/artifact"
	"github.com/vulntor/sslartifact/pkg/locate"
	"github.com/vulntor/sslartifact/pkg/target"
	"github.com/vulntor/sslartifact/pkg/tool"
)

// NewScanCommand returns the scan command: start a run from input files or
// resume one from its job store.
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scan (-i FILE... | --resume STORE)",
		Short:   "Run the SSL scanner against every target",
		GroupID: "scan",
		Example: `  # Every TLS service Nessus reported, with sslscan from PATH
  sslartifact scan -t nessus -i ~/Downloads/*.nessus -o ./artifacts

  # testssl.sh from a checkout, 20 at a time
  sslartifact scan -t nmap -i scan.xml --program testssl.sh --path ~/src/testssl.sh --threads 20

  # Continue an interrupted run, retrying targets that timed out
  sslartifact scan --resume ./artifacts --retry-timeouts`,
		RunE: runScan,
	}

	flags := cmd.Flags()
	flags.StringP("type", "t", string(target.FormatNessus), "Input file format: nessus, nmap, list")
	flags.StringArrayP("input", "i", nil, "Input file, repeatable; wildcards are expanded")
	flags.StringP("resume", "r", "", "Job store (or output directory) of the run to resume")
	flags.StringP("output", "o", "", "Output directory (default ./ssl_artifacts_<unix time>)")
	flags.String("program", tool.SSLScan, "Scanner to run: sslscan, testssl.sh")
	flags.String("path", "", "Scanner executable, or a directory to search for it")
	flags.String("search-root", "/", "Directory searched when the scanner is not on PATH")
	flags.Int("threads", artifact.DefaultConcurrency, "Number of scanner processes running at once")
	flags.String("timeout", "", "Per-target timeout, seconds or a duration like 4m (0 disables)")
	flags.Bool("retry-timeouts", false, "On resume, scan targets that timed out again")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	opts, err := bind.BindScanOptions(cmd, args, appctx.ConfigValue(cmd.Context()))
	if err != nil {
		return usageError(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// A second signal gets the default behavior and ends the process.
	go func() {
		<-ctx.Done()
		stop()
	}()

	return executeScan(ctx, cmd, opts, artifact.ExecLauncher{})
}

func executeScan(ctx context.Context, cmd *cobra.Command, opts bind.ScanOptions, launcher artifact.Launcher) error {
	f := format.FromCommand(cmd)
	printer := newProgressPrinter(cmd.OutOrStdout(), 0, !color.NoColor)

	orch := artifact.NewOrchestrator().
		WithLauncher(launcher).
		WithProgressSink(printer)
	for name, d := range opts.Timeouts {
		orch.WithTimeout(name, d)
	}

	var (
		h   *artifact.RunHandle
		err error
	)
	if opts.Resuming() {
		h, err = orch.ResumeRun(ctx, opts.Resume, artifact.ResumeOptions{RetryTimeouts: opts.RetryTimeouts})
		if err != nil {
			return err
		}
		_ = f.PrintSummary(fmt.Sprintf("Resuming %s: %d of the targets still need scanning", h.StorePath, len(h.Pending)))
	} else {
		h, err = startRun(ctx, f, orch, opts)
		if err != nil || h == nil {
			return err
		}
	}

	_ = f.PrintSummary(fmt.Sprintf("Beginning to artifact ssl hosts with %s", h.Settings.ToolName))
	printer.total = len(h.Pending)

	summary, err := orch.Execute(ctx, h, opts.Threads)
	interrupted := artifact.IsInterrupted(err)
	failures := artifact.TargetErrors(err)
	if err != nil && !interrupted && len(failures) == 0 {
		return err
	}

	out := format.Summary{
		RunID:       h.Settings.RunID,
		StorePath:   h.StorePath,
		Total:       summary.Total,
		Completed:   summary.Completed,
		TimedOut:    summary.TimedOut,
		Failed:      summary.Failed,
		Abandoned:   summary.Abandoned,
		Duration:    summary.Duration,
		Interrupted: interrupted,
	}
	for _, te := range failures {
		out.Errors = append(out.Errors, format.ErrorDetail{
			Target:    te.Target.String(),
			Error:     te.Err.Error(),
			ErrorCode: format.CodeTargetFailure,
		})
	}
	if interrupted {
		log.Warn().Str("store", h.StorePath).Msg("Scan terminated before every target finished")
	}

	// Per-target failures are reported, not fatal: the run itself completed.
	return f.PrintRunSummary(out)
}

// startRun builds the target list, finds the scanner and creates the run.
// A nil handle without error means there was nothing to scan.
func startRun(ctx context.Context, f format.Formatter, orch *artifact.Orchestrator, opts bind.ScanOptions) (*artifact.RunHandle, error) {
	_ = f.PrintSummary("Beginning to build host list")
	targets, err := target.ParseFiles(opts.Format, opts.Inputs)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		_ = f.PrintSummary(fmt.Sprintf("No TLS targets found in %d input file(s)", len(opts.Inputs)))
		return nil, nil
	}

	if opts.Path == "" {
		_ = f.PrintSummary(fmt.Sprintf("Looking for %s, this can take some time", opts.Program))
	}
	toolPath, err := locate.Resolve(opts.Program, opts.Path, opts.SearchRoot)
	if err != nil {
		return nil, err
	}
	probeVersion(ctx, opts.Program, toolPath)
	_ = f.PrintSummary(fmt.Sprintf("Going to be using %s found at %s", opts.Program, toolPath))

	h, err := orch.StartRun(ctx, targets, opts.Program, toolPath, opts.OutputDir)
	if err != nil {
		return nil, err
	}
	_ = f.PrintSummary(fmt.Sprintf("Saving results in %s", h.Settings.OutputDirectory))
	_ = f.PrintSummary(fmt.Sprintf("Job store created at %s (%d targets)", h.StorePath, len(h.Pending)))
	return h, nil
}

// probeVersion warns about scanner versions outside the supported range.
// Failing to read a version is not fatal.
func probeVersion(ctx context.Context, name, path string) {
	tl, err := tool.Lookup(name)
	if err != nil {
		return
	}
	info, err := tl.ProbeVersion(ctx, path)
	if err != nil {
		log.Debug().Err(err).Str("tool", name).Msg("Could not determine scanner version")
		return
	}
	if !info.Supported {
		log.Warn().
			Str("tool", name).
			Str("version", info.Raw).
			Str("required", tl.MinVersion).
			Msg("Scanner version is not supported, results may be incomplete")
		return
	}
	log.Info().Str("tool", name).Str("version", info.Raw).Msg("Scanner version")
}
