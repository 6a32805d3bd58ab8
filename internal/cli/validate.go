package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/check"
	"github.com/vigil-run/vigil/internal/engine"
	"github.com/vigil-run/vigil/internal/spec"
	"github.com/vigil-run/vigil/internal/vary"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec-file>...",
		Short: "Parse and validate specs without executing them",
		Long: `Validate specs: schema, repeat expansion, variation and check resolution,
and a materialization dry-run over an empty base configuration.

Nothing executes; a spec that validates here will materialize cleanly at run
time (backend failures can still occur during execution).

Example:
  vigil validate ./specs/typo-robustness.yml
  vigil validate ./specs/*.yml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateSpecs(cmd, rootOpts, args)
		},
	}
	return cmd
}

func validateSpecs(cmd *cobra.Command, rootOpts *RootOptions, paths []string) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	varyReg := vary.NewRegistry()
	checkReg := check.NewRegistry()

	type entry struct {
		Path       string `json:"path"`
		Valid      bool   `json:"valid"`
		Error      string `json:"error,omitempty"`
		Inputs     int    `json:"inputs,omitempty"`
		Variations int    `json:"variations,omitempty"`
		Checks     int    `json:"checks,omitempty"`
		Slices     int    `json:"slices,omitempty"`
	}

	emptyBase := backend.Config{
		Function:    backend.FunctionConfig{},
		Environment: backend.EnvironmentConfig{},
	}

	entries := make([]entry, 0, len(paths))
	failed := 0
	for _, path := range paths {
		doc, err := spec.Load(path, varyReg, checkReg)
		if err != nil {
			entries = append(entries, entry{Path: path, Error: err.Error()})
			failed++
			continue
		}
		// dry-run materialization catches bad variation params and transform
		// failures without touching any backend
		slices, err := engine.Materialize(doc, emptyBase, varyReg)
		if err != nil {
			entries = append(entries, entry{Path: path, Error: err.Error()})
			failed++
			continue
		}
		entries = append(entries, entry{
			Path:       path,
			Valid:      true,
			Inputs:     len(doc.Inputs),
			Variations: len(doc.Variations),
			Checks:     len(doc.Checks),
			Slices:     len(slices),
		})
	}

	if formatter.Format == "json" {
		if err := formatter.Success(map[string]any{"specs": entries, "failed": failed}); err != nil {
			return err
		}
	} else {
		var sb strings.Builder
		for i, e := range entries {
			if i > 0 {
				sb.WriteString("\n")
			}
			if e.Valid {
				fmt.Fprintf(&sb, "%s: ok (%d inputs, %d variations, %d checks, %d slices)",
					e.Path, e.Inputs, e.Variations, e.Checks, e.Slices)
			} else {
				fmt.Fprintf(&sb, "%s: %s", e.Path, e.Error)
			}
		}
		if err := formatter.Success(sb.String()); err != nil {
			return err
		}
	}

	if failed > 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("%d spec(s) invalid", failed))
	}
	return nil
}
