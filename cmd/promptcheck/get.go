package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/promptcheck/check"
	"github.com/c360studio/promptcheck/config"
	"github.com/c360studio/promptcheck/registry"
	"github.com/c360studio/promptcheck/report"
)

func getCmd(opts *options) *cobra.Command {
	var (
		vars         []string
		varFiles     []string
		escapeFences bool
	)

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Print a prompt with its ${name} placeholders filled in",
		Example: `  promptcheck get LOGIN_PAGE --var-file domContent=page.html --escape-fences
  promptcheck get LOGOUT_PAGE --var pageUrl=https://example.com/logout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseVars(vars, varFiles)
			if err != nil {
				return setupError(err)
			}
			if escapeFences {
				for name, v := range values {
					values[name] = registry.EscapeCodeFences(v)
				}
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return setupError(err)
			}
			return renderPrompt(cmd, opts, cfg, registry.Identifier(args[0]), values)
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Placeholder value as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&varFiles, "var-file", nil, "Placeholder value read from a file as name=PATH (repeatable)")
	cmd.Flags().BoolVar(&escapeFences, "escape-fences", false, "Escape ``` in placeholder values")

	return cmd
}

func renderPrompt(cmd *cobra.Command, opts *options, cfg *config.Config, id registry.Identifier, values map[string]string) error {
	reg, _, err := check.NewRunner(cfg, nil, opts.logger).LoadRegistry(cmd.Context())
	if err != nil {
		if errors.Is(err, registry.ErrMalformedDeclaration) {
			return &exitError{code: report.Failure.ExitCode(), err: err}
		}
		return setupError(err)
	}

	text, err := reg.Render(id, values)
	if err != nil {
		return &exitError{code: report.Failure.ExitCode(), err: err}
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

// parseVars builds the placeholder values from name=value pairs and
// name=PATH file references. Later definitions of a name win.
func parseVars(vars, varFiles []string) (map[string]string, error) {
	values := make(map[string]string, len(vars)+len(varFiles))

	for _, kv := range vars {
		name, value, err := splitVar(kv)
		if err != nil {
			return nil, fmt.Errorf("--var: %w", err)
		}
		values[name] = value
	}

	for _, kv := range varFiles {
		name, path, err := splitVar(kv)
		if err != nil {
			return nil, fmt.Errorf("--var-file: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("--var-file %s: %w", name, err)
		}
		values[name] = string(data)
	}

	return values, nil
}

func splitVar(kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected name=value, got %q", kv)
	}
	return name, value, nil
}
