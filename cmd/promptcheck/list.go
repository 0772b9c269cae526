package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/promptcheck/check"
	"github.com/c360studio/promptcheck/config"
	"github.com/c360studio/promptcheck/registry"
	"github.com/c360studio/promptcheck/report"
)

// listing is the JSON shape of `promptcheck list --format json`.
type listing struct {
	Registry   string               `json:"registry"`
	Templates  []registry.Template  `json:"templates"`
	Duplicates []registry.Duplicate `json:"duplicates,omitempty"`
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the declared prompt keys in declaration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return setupError(err)
			}

			reg, text, err := check.NewRunner(cfg, nil, opts.logger).LoadRegistry(cmd.Context())
			if err != nil {
				if errors.Is(err, registry.ErrMalformedDeclaration) {
					return &exitError{code: report.Failure.ExitCode(), err: err}
				}
				return setupError(err)
			}

			templates := make([]registry.Template, 0, reg.Len())
			for _, id := range reg.IDs() {
				tpl, _ := reg.Get(id)
				templates = append(templates, tpl)
			}

			out := cmd.OutOrStdout()
			if cfg.Report.Format == config.FormatJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(listing{
					Registry:   text.Path,
					Templates:  templates,
					Duplicates: reg.Duplicates(),
				})
			}

			for _, tpl := range templates {
				if cfg.Report.Verbose {
					fmt.Fprintf(out, "%s\t%s:%d\n", tpl.ID, text.Path, tpl.Line)
				} else {
					fmt.Fprintln(out, tpl.ID)
				}
			}
			for _, d := range reg.Duplicates() {
				fmt.Fprintf(out, "%s\t(duplicate on line %d, first declared on line %d)\n", d.ID, d.Line, d.FirstLine)
			}
			return nil
		},
	}
}
