package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tradefleet/cmd/tradefleet/handlers"
)

// Destroy returns the destroy command.
func Destroy() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete every resource of an environment",
		Long: `Destroy deletes all servers and floating IPs labelled with the
environment name, whether or not a journal knows about them.

Example:
  tradefleet destroy -c prod.yaml

WARNING: This operation is irreversible.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, yes, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to environment descriptor (default: tradefleet.yaml)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
