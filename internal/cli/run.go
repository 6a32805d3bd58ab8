package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigil-run/vigil/internal/backend"
	"github.com/vigil-run/vigil/internal/check"
	"github.com/vigil-run/vigil/internal/engine"
	"github.com/vigil-run/vigil/internal/report"
	"github.com/vigil-run/vigil/internal/spec"
	"github.com/vigil-run/vigil/internal/vary"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Backend      string
	Workers      int
	Trace        bool
	TrimPayloads bool
	History      string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <spec-file>",
		Short: "Execute a spec and write its report",
		Long: `Execute a behavioural-verification spec against a backend.

The spec is parsed and validated, every input x variation slice is executed,
checks are evaluated, and the report is written next to the spec as
<stem>-<timestamp>.report.yml.

Base function and environment configuration come from VIGIL_FUNCTION,
VIGIL_ENVIRONMENT and VIGIL_ENV_<KEY> environment variables.

Example:
  vigil run ./specs/typo-robustness.yml
  vigil run --backend command --trace ./specs/typo-robustness.yml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpec(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "noop", "backend to execute against")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "slice worker pool size")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "capture backend trace artifacts")
	cmd.Flags().BoolVar(&opts.TrimPayloads, "trim-payloads", false, "omit payload maps from the report")
	cmd.Flags().StringVar(&opts.History, "history", "", "path to run history database (optional)")

	return cmd
}

func runSpec(cmd *cobra.Command, opts *RunOptions, path string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	varyReg := vary.NewRegistry()
	checkReg := check.NewRegistry()

	doc, err := spec.Load(path, varyReg, checkReg)
	if err != nil {
		formatter.Error("SPEC", err.Error(), nil)
		return WrapExitError(ExitCommandError, "spec rejected", err)
	}
	formatter.VerboseLog("spec loaded: %d inputs, %d variations, %d checks",
		len(doc.Inputs), len(doc.Variations), len(doc.Checks))

	cfg, err := backend.ConfigFromEnv()
	if err != nil {
		formatter.Error("CONFIG", err.Error(), nil)
		return WrapExitError(ExitCommandError, "base configuration rejected", err)
	}

	b, err := backend.NewRegistry().Resolve(opts.Backend, cfg)
	if err != nil {
		formatter.Error("BACKEND", err.Error(), nil)
		return WrapExitError(ExitCommandError, "backend setup failed", err)
	}

	engineOpts := []engine.Option{
		engine.WithWorkers(opts.Workers),
		engine.WithLogger(slog.Default()),
	}
	if opts.Trace {
		engineOpts = append(engineOpts, engine.WithTracing())
	}
	eng := engine.New(b, cfg, varyReg, engineOpts...)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	rep, err := eng.Run(ctx, doc)
	if err != nil {
		formatter.Error("RUN", err.Error(), nil)
		return WrapExitError(ExitCommandError, "run aborted", err)
	}

	if opts.TrimPayloads {
		rep.TrimPayloads()
	}

	reportPath, err := report.Write(rep, doc.Path, time.Now())
	if err != nil {
		formatter.Error("REPORT", err.Error(), nil)
		return WrapExitError(ExitCommandError, "report not written", err)
	}

	if opts.History != "" {
		if err := recordHistory(ctx, opts.History, rep, reportPath); err != nil {
			// The report is already on disk; a broken index is not worth
			// failing the run over.
			slog.Error("history recording failed", "error", err)
		}
	}

	if err := outputRunResult(formatter, rep, reportPath); err != nil {
		return err
	}

	if rep.Verdict == "ERROR" {
		return NewExitError(ExitFailure, "verdict: ERROR")
	}
	return nil
}

func outputRunResult(formatter *OutputFormatter, rep *report.Report, reportPath string) error {
	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"run_id":  rep.Meta.RunID,
			"verdict": rep.Verdict,
			"report":  reportPath,
			"summary": rep.Summary,
		})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", rep.Meta.Title, rep.Verdict)
	fmt.Fprintf(&sb, "  slices: %d", rep.Summary.Slices)
	if rep.Summary.Failures > 0 {
		fmt.Fprintf(&sb, " (%d failed)", rep.Summary.Failures)
	}
	sb.WriteString("\n")

	statuses := make([]string, 0, len(rep.Summary.Results))
	for status := range rep.Summary.Results {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Fprintf(&sb, "  %s: %d\n", status, rep.Summary.Results[status])
	}

	fmt.Fprintf(&sb, "  report: %s", reportPath)
	return formatter.Success(sb.String())
}

// signalContext derives a context cancelled by SIGINT/SIGTERM. Cancellation
// does not abort the run abruptly: remaining slices record a cancelled
// failure and the report still gets written.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, finishing run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
