package main

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/c360studio/promptcheck/check"
	"github.com/c360studio/promptcheck/source"
	"github.com/c360studio/promptcheck/watch"
)

func watchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-run the check whenever the registry or a consumer changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return setupError(err)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			logger := opts.logger
			runner := check.NewRunner(cfg, nil, logger)

			registryPath, err := filepath.Abs(cfg.ResolvePath(cfg.Registry.Path))
			if err != nil {
				return setupError(err)
			}

			w, err := watch.NewWatcher(watch.Config{
				Root: cfg.Root,
				Match: func(path string) bool {
					return path == registryPath ||
						source.Match(cfg.Root, path, cfg.Consumers.Paths, cfg.Consumers.Exclude)
				},
				DebounceDelay: cfg.Watch.Debounce,
				Logger:        logger,
			})
			if err != nil {
				return setupError(err)
			}
			defer func() { _ = w.Stop() }()

			// Watches go in before the first check so no write is lost in between.
			if err := w.Start(ctx); err != nil {
				return setupError(err)
			}

			if _, rep, err := checkOnce(ctx, runner, out, logger); err != nil {
				logger.Error("Check failed", slog.String("error", err.Error()))
			} else {
				w.Seed(rep.Sources)
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case change, ok := <-w.Events():
					if !ok {
						return nil
					}
					logger.Info("Re-checking",
						slog.String("run_id", change.RunID),
						slog.Any("paths", change.Paths()))

					if _, _, err := checkOnce(ctx, runner, out, logger); err != nil {
						logger.Error("Check failed",
							slog.String("run_id", change.RunID),
							slog.String("error", err.Error()))
					}
				}
			}
		},
	}
}
