package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/promptcheck/config"
)

func initCmd(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Write a default " + config.ProjectConfigFile,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			} else if cwd, err := os.Getwd(); err == nil {
				dir = cwd
			}

			path, err := config.NewLoader(opts.logger).WriteProjectConfig(dir, force)
			if err != nil {
				return setupError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}
