package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vulntor/sslartifact/cmd/sslartifact/internal/format"
	"github.com/vulntor/sslartifact/pkg/appctx"
	"github.com/vulntor/sslartifact/pkg/locate"
	"github.com/vulntor/sslartifact/pkg/tool"
)

type toolReport struct {
	Name      string `json:"name" yaml:"name"`
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	Required  string `json:"required" yaml:"required"`
	Supported bool   `json:"supported" yaml:"supported"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewToolsCommand returns the tools command, which reports where the
// supported scanners are installed and whether their versions are supported.
func NewToolsCommand() *cobra.Command {
	var deep bool

	cmd := &cobra.Command{
		Use:     "tools",
		Short:   "Locate the supported scanners and report their versions",
		GroupID: "core",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("format")
			if err := format.ValidateMode(output); err != nil {
				return usageError(err)
			}

			cfg := appctx.ConfigValue(cmd.Context())
			reports := make([]toolReport, 0, len(tool.Names()))
			for _, name := range tool.Names() {
				reports = append(reports, inspectTool(cmd.Context(), name, cfg.Scan.Path, cfg.Scan.SearchRoot, deep))
			}

			f := format.FromCommand(cmd)
			if f.Mode() != format.ModeTable {
				return f.PrintData(reports)
			}

			rows := make([][]string, 0, len(reports))
			for _, r := range reports {
				path := r.Path
				if path == "" {
					path = "not found"
				}
				state := "yes"
				switch {
				case r.Error != "":
					state = r.Error
				case !r.Supported:
					state = "no (" + r.Required + ")"
				}
				rows = append(rows, []string{r.Name, path, orDash(r.Version), state})
			}
			return f.PrintTable([]string{"Tool", "Path", "Version", "Supported"}, rows)
		},
	}

	cmd.Flags().String("path", "", "Scanner executable, or a directory to search")
	cmd.Flags().String("search-root", "/", "Directory searched with --deep")
	cmd.Flags().BoolVar(&deep, "deep", false, "Search --search-root when a scanner is not on PATH")
	cmd.Flags().StringP("format", "o", "text", "Output format: text, json, yaml")

	return cmd
}

func inspectTool(ctx context.Context, name, hint, searchRoot string, deep bool) toolReport {
	tl, err := tool.Lookup(name)
	if err != nil {
		return toolReport{Name: name, Error: err.Error()}
	}
	report := toolReport{Name: name, Required: tl.MinVersion}

	var path string
	switch {
	case hint != "" || deep:
		path, err = locate.Resolve(name, hint, searchRoot)
	default:
		path, err = locate.OnPath(name)
	}
	if err != nil {
		report.Error = "not found"
		return report
	}
	report.Path = path

	info, err := tl.ProbeVersion(ctx, path)
	report.Version = info.Raw
	if err != nil {
		report.Error = "unknown version"
		return report
	}
	report.Supported = info.Supported
	return report
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
