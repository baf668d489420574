package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tradefleet/cmd/tradefleet/handlers"
)

// Rollback returns the command that rolls back a journaled run.
func Rollback() *cobra.Command {
	var opts handlers.RollbackOptions

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Destroy the instances created by a run",
		Long: `Rollback reads a run from the journal and destroys its instances in
reverse creation order, including instances whose creation never
finished. Hardening and installed services are not reversed.

Without --run, the latest run of the environment in the descriptor is
rolled back.

Examples:
  tradefleet rollback --run 0f8e3c2a-...
  tradefleet rollback -c prod.yaml --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.LogLevel = logLevel
			return handlers.Rollback(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to environment descriptor (default: tradefleet.yaml)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "Run to roll back (default: latest run of the environment)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
