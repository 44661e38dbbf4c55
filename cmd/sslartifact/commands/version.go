package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/sslartifact/cmd/sslartifact/internal/format"
	"github.com/vulntor/sslartifact/pkg/version"
)

// NewVersionCommand prints build metadata.
func NewVersionCommand(cliExecutable string) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Print version information",
		GroupID: "core",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			f := format.FromCommand(cmd)
			if f.Mode() != format.ModeTable {
				return f.PrintData(info)
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s version: %s\n", cliExecutable, info.Version)
			if short {
				return nil
			}
			_, _ = fmt.Fprintf(w, "Commit: %s\n", info.Commit)
			_, _ = fmt.Fprintf(w, "Build Date: %s\n", info.BuildDate)
			_, _ = fmt.Fprintf(w, "Go Version: %s\n", info.GoVersion)
			_, err := fmt.Fprintf(w, "Platform: %s\n", info.Platform)
			return err
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	cmd.Flags().StringP("format", "o", "text", "Output format: text, json, yaml")

	return cmd
}
