package main

import (
	"github.com/spf13/cobra"

	"github.com/windowgate/slidinglimit/config"
)

// newValidateConfigCmd loads and validates the config file without
// starting the daemon, surfacing exit code 1 on failure.
func newValidateConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "load and validate the config file, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.Load(opts.configPath); err != nil {
				return exitErr(ExitConfigInvalid, err)
			}
			cmd.Println("config OK")
			return nil
		},
	}
}
