package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/c360studio/promptcheck/check"
	"github.com/c360studio/promptcheck/config"
	"github.com/c360studio/promptcheck/report"
)

func checkCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that every referenced prompt key is declared (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}
}

func runCheck(cmd *cobra.Command, opts *options) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return setupError(err)
	}

	runner := check.NewRunner(cfg, nil, opts.logger)
	outcome, _, err := checkOnce(cmd.Context(), runner, cmd.OutOrStdout(), opts.logger)
	if err != nil {
		return setupError(err)
	}
	if outcome != report.Success {
		return &exitError{code: outcome.ExitCode()}
	}
	return nil
}

// checkOnce runs a check, writes the report and the optional metrics file.
func checkOnce(ctx context.Context, runner *check.Runner, w io.Writer, logger *slog.Logger) (report.Outcome, *check.Report, error) {
	cfg := runner.Config()

	rep, err := runner.Run(ctx)
	if err != nil {
		return report.SetupFailure, nil, err
	}

	outcome, err := report.Write(w, rep, reportOptions(cfg))
	if err != nil {
		return report.SetupFailure, rep, err
	}

	if err := writeMetrics(cfg, rep); err != nil {
		logger.Warn("Failed to write metrics", slog.String("path", cfg.Report.MetricsFile), slog.String("error", err.Error()))
	}

	logger.Info("Check finished",
		slog.String("outcome", outcome.String()),
		slog.Int("declared", rep.DeclaredCount),
		slog.Int("referenced", rep.ReferencedCount),
		slog.Int("missing", len(rep.Missing)))
	return outcome, rep, nil
}

func writeMetrics(cfg *config.Config, rep *check.Report) error {
	if cfg.Report.MetricsFile == "" {
		return nil
	}
	path := cfg.ResolvePath(cfg.Report.MetricsFile)
	if err := report.WriteMetrics(path, rep, reportOptions(cfg).Policy); err != nil {
		return fmt.Errorf("metrics %s: %w", path, err)
	}
	return nil
}
