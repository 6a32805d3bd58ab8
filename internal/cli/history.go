package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigil-run/vigil/internal/history"
	"github.com/vigil-run/vigil/internal/report"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Spec     string
	Limit    int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs from the history database",
		Long: `List runs recorded with vigil run --history, newest first.

Example:
  vigil history --db ./vigil.db
  vigil history --db ./vigil.db --spec ./specs/typo-robustness.yml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to run history database (required)")
	cmd.Flags().StringVar(&opts.Spec, "spec", "", "only show runs of this spec")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func showHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := history.Open(opts.Database)
	if err != nil {
		formatter.Error("HISTORY", err.Error(), nil)
		return WrapExitError(ExitCommandError, "history database not available", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var entries []history.Entry
	if opts.Spec != "" {
		entries, err = st.RunsForSpec(ctx, opts.Spec, opts.Limit)
	} else {
		entries, err = st.RecentRuns(ctx, opts.Limit)
	}
	if err != nil {
		formatter.Error("HISTORY", err.Error(), nil)
		return WrapExitError(ExitCommandError, "history query failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"runs": entries})
	}

	if len(entries) == 0 {
		return formatter.Success("no runs recorded")
	}
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s  %-5s  %s (%d slices, %d failed)",
			e.StartedAt.Local().Format(time.DateTime), e.Verdict, e.SpecPath, e.Slices, e.Failures)
	}
	return formatter.Success(sb.String())
}

// recordHistory indexes a finished run; used by the run command.
func recordHistory(ctx context.Context, dbPath string, rep *report.Report, reportPath string) error {
	// A signal-cancelled run still produced a report, so index it anyway.
	ctx = context.WithoutCancel(ctx)

	st, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.RecordRun(ctx, rep, reportPath)
}
