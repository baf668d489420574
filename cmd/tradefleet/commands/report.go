package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tradefleet/cmd/tradefleet/handlers"
)

// Report returns the command that reads archived run reports.
func Report() *cobra.Command {
	var (
		configPath string
		runID      string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show an archived run report",
		Long: `Report reads run reports from the archive bucket configured in the
descriptor. Without --run it lists the archived runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Report(cmd.Context(), configPath, runID, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to environment descriptor (default: tradefleet.yaml)")
	cmd.Flags().StringVar(&runID, "run", "", "Run whose report is shown")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON report")

	return cmd
}
