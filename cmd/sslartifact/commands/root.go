package commands

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vulntor/sslartifact/pkg/appctx"
	"github.com/vulntor/sslartifact/pkg/config"
	"github.com/vulntor/sslartifact/pkg/logging"
	"github.com/vulntor/sslartifact/pkg/paths"
)

const cliExecutable = "sslartifact"

// NewCommand constructs the top-level sslartifact CLI command, wiring
// global flags, configuration loading and logging.
func NewCommand() *cobra.Command {
	var (
		configFile     string
		verbosityCount int
		noColor        bool
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Collect SSL/TLS scanner artifacts for many targets, resumably",
		Long: `sslartifact runs sslscan or testssl.sh against every TLS endpoint found in
nessus, nmap or plain list inputs, a bounded number at a time. Progress is
saved next to the artifacts so an interrupted run can be resumed.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configFile
			if path == "" {
				path = paths.DefaultConfigFile()
			}
			mgr := config.NewManager()
			if err := mgr.Load(cmd.Flags(), path); err != nil {
				return WithErrorCode(err, errorCodeUsage)
			}
			cfg := mgr.Get()

			if noColor {
				color.NoColor = true
			}
			logging.SetLogWriter(zerolog.ConsoleWriter{
				Out:        cmd.ErrOrStderr(),
				TimeFormat: time.RFC3339,
				NoColor:    noColor,
			})
			if err := logging.ConfigureGlobalLogging(logging.LevelForVerbosity(cfg.Log.Level, verbosityCount)); err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			cmd.SetContext(appctx.WithConfig(cmd.Context(), mgr))
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (default $XDG_CONFIG_HOME/sslartifact/config.yaml)")
	cmd.PersistentFlags().CountVarP(&verbosityCount, "verbosity", "v", "Increase logging verbosity (repeatable)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddGroup(&cobra.Group{ID: "scan", Title: "Scan Commands"})
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands"})

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewToolsCommand())
	cmd.AddCommand(NewVersionCommand(cliExecutable))

	return cmd
}
