// Package main provides the promptcheck binary entry point.
// promptcheck verifies that every prompt identifier referenced by consumer
// modules is declared in the prompt registry module.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	// Register extraction backends via init()
	_ "github.com/c360studio/promptcheck/syntax"

	"github.com/c360studio/promptcheck/config"
	"github.com/c360studio/promptcheck/extract"
	"github.com/c360studio/promptcheck/registry"
	"github.com/c360studio/promptcheck/report"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "promptcheck"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(report.SetupFailure.ExitCode())
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// exitError carries a process exit code out of a command. A nil err means
// the command already reported the problem.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func setupError(err error) error {
	return &exitError{code: report.SetupFailure.ExitCode(), err: err}
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return report.Success.ExitCode()
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", exit.err)
		}
		return exit.code
	}

	// Usage errors from cobra itself
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	return report.SetupFailure.ExitCode()
}

// options holds the persistent flags shared by every command.
type options struct {
	configPath  string
	logLevel    string
	format      string
	parser      string
	scanMode    string
	metricsFile string
	registry    string
	consumers   []string
	verbose     bool

	logger *slog.Logger
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Check prompt registry references",
		Long: `promptcheck verifies that every prompt identifier referenced by consumer
modules is declared in the prompt registry module.

The registry is the object literal that follows the configured anchor
(default "export const DEFAULT_PROMPTS"). References are calls such as
queue.push('KEY') and getPrompt('KEY', vars).

Exit status is 0 when every reference is declared, 1 when keys are missing
or the registry is malformed, and 2 when an input cannot be read.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = newLogger(opts.logLevel, cmd.ErrOrStderr())
			slog.SetDefault(opts.logger)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML, default: nearest promptcheck.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.format, "format", "", "Report format (text, json)")
	flags.StringVar(&opts.parser, "parser", "", "Extraction backend (lexical, syntax, auto)")
	flags.StringVar(&opts.scanMode, "scan-mode", "", "Registry brace counting (naive, string-aware)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after each check")
	flags.StringVar(&opts.registry, "registry", "", "Registry module path")
	flags.StringArrayVar(&opts.consumers, "consumer", nil, "Consumer file or glob (repeatable)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show reference locations")

	cmd.AddCommand(
		checkCmd(opts),
		listCmd(opts),
		getCmd(opts),
		watchCmd(opts),
		initCmd(opts),
	)

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// newLogger configures logging on w at the named level.
func newLogger(logLevel string, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig layers the config files and the command-line overrides.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(o.logger).Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Command-line paths are relative to the working directory.
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	consumers := make([]string, 0, len(o.consumers))
	for _, p := range o.consumers {
		consumers = append(consumers, fromDir(cwd, p))
	}

	cfg.Merge(&config.Config{
		Registry: config.RegistryConfig{
			Path:     fromDir(cwd, o.registry),
			ScanMode: registry.ScanMode(o.scanMode),
		},
		Consumers: config.ConsumersConfig{
			Paths: consumers,
		},
		Parser: o.parser,
		Report: config.ReportConfig{
			Format:      o.format,
			MetricsFile: o.metricsFile,
			Verbose:     o.verbose,
		},
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !extract.DefaultBackends.Has(cfg.Parser) {
		return nil, fmt.Errorf("unknown parser %q (available: %s, %s)",
			cfg.Parser, strings.Join(extract.DefaultBackends.Names(), ", "), extract.Auto)
	}
	return cfg, nil
}

// fromDir makes a non-empty relative path or glob absolute against dir.
func fromDir(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func reportOptions(cfg *config.Config) report.Options {
	return report.Options{
		Format:  cfg.Report.Format,
		Verbose: cfg.Report.Verbose,
		Policy:  report.Policy{AllowDuplicates: cfg.Report.AllowDuplicates},
	}
}
