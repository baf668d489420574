package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tradefleet/cmd/tradefleet/handlers"
)

// Plan returns the command that prints a deployment plan.
func Plan() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the steps a deployment would take",
		Long: `Plan lists every call a deployment would make, phase by phase, without
contacting Hetzner Cloud or any instance. No credentials are needed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), configPath, asJSON, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to environment descriptor (default: tradefleet.yaml)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")

	return cmd
}
