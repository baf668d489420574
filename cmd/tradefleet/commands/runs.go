package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tradefleet/cmd/tradefleet/handlers"
)

// Runs returns the command that lists journaled runs.
func Runs() *cobra.Command {
	var (
		environment string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List deployment runs from the journal",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Runs(environment, asJSON, logLevel)
		},
	}

	cmd.Flags().StringVarP(&environment, "environment", "e", "", "Only list runs of this environment")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")

	return cmd
}
