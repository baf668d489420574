// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import "github.com/spf13/cobra"

// logLevel is bound to the persistent --log-level flag.
var logLevel string

// Root returns the root command for the tradefleet CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tradefleet",
		Short:         "Deploy hardened trading infrastructure to Hetzner Cloud",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	cmd.AddCommand(Init())
	cmd.AddCommand(Validate())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Deploy())
	cmd.AddCommand(Rollback())
	cmd.AddCommand(Runs())
	cmd.AddCommand(Report())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Version())

	return cmd
}
