package main

import (
	"github.com/spf13/cobra"
)

// options are the flags shared by every subcommand: one root command with
// its subcommands wired in via AddCommand, options captured by reference
// before RunE closes over them.
type options struct {
	configPath      string
	backendOverride string
}

// newRootCmd builds the ratelimitd root command: "serve" runs the daemon,
// "validate-config" only exercises config.Load and reports exit code 1 on
// an invalid file, without starting anything.
func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "ratelimitd",
		Short:         "distributed sliding-window rate-limit daemon",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "ratelimit.toml", "path to the TOML config file")
	flags.StringVar(&opts.backendOverride, "backend", "", "override the store backend (memory|redis); empty uses redis_url from config")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newValidateConfigCmd(opts))
	return root
}
