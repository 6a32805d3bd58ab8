package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vigil-run/vigil/internal/spec"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var withReports bool

	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "Discover specs in a directory",
		Long: `List the spec files in a directory (default: current directory).

Report files carry the reserved .report.yml suffix and are never listed as
specs. With --reports, each spec's past reports are listed underneath it,
newest first.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return listSpecs(cmd, rootOpts, dir, withReports)
		},
	}

	cmd.Flags().BoolVar(&withReports, "reports", false, "also list each spec's reports")

	return cmd
}

func listSpecs(cmd *cobra.Command, rootOpts *RootOptions, dir string, withReports bool) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	specs, err := spec.FindSpecs(dir)
	if err != nil {
		formatter.Error("LIST", err.Error(), nil)
		return WrapExitError(ExitCommandError, "spec discovery failed", err)
	}

	type entry struct {
		Path    string   `json:"path"`
		Reports []string `json:"reports,omitempty"`
	}

	entries := make([]entry, 0, len(specs))
	for _, path := range specs {
		e := entry{Path: path}
		if withReports {
			reports, err := spec.FindReports(path)
			if err != nil {
				formatter.Error("LIST", err.Error(), nil)
				return WrapExitError(ExitCommandError, "report discovery failed", err)
			}
			e.Reports = reports
		}
		entries = append(entries, e)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"dir": dir, "specs": entries})
	}

	if len(entries) == 0 {
		return formatter.Success(fmt.Sprintf("no specs in %s", dir))
	}
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(e.Path)
		for _, rep := range e.Reports {
			fmt.Fprintf(&sb, "\n  %s", filepath.Base(rep))
		}
	}
	return formatter.Success(sb.String())
}
