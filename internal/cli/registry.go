package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/check"
	"github.com/vigil-run/vigil/internal/vary"
)

// NewRegistryCommand creates the registry command.
func NewRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "List registered variations, checks and backends",
		Long: `List everything a spec can reference: variation types, check names, and
backend names, as registered in this build.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRegistry(cmd, rootOpts)
		},
	}
	return cmd
}

func showRegistry(cmd *cobra.Command, rootOpts *RootOptions) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	variations := vary.NewRegistry().Names()
	checks := check.NewRegistry().Names()
	backends := backend.NewRegistry().Names()

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"variations": variations,
			"checks":     checks,
			"backends":   backends,
		})
	}

	var sb strings.Builder
	writeSection(&sb, "variations", variations)
	sb.WriteString("\n")
	writeSection(&sb, "checks", checks)
	sb.WriteString("\n")
	writeSection(&sb, "backends", backends)
	return formatter.Success(strings.TrimSuffix(sb.String(), "\n"))
}

func writeSection(sb *strings.Builder, heading string, names []string) {
	fmt.Fprintf(sb, "%s:\n", heading)
	for _, name := range names {
		fmt.Fprintf(sb, "  %s\n", name)
	}
}
