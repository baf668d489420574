package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tradefleet/cmd/tradefleet/handlers"
)

// Deploy returns the command that runs a deployment.
//
// Environment variables:
//
//	HCLOUD_TOKEN: Hetzner Cloud API token (required unless --dry-run)
//	TRADEFLEET_ARCHIVE_ACCESS_KEY, TRADEFLEET_ARCHIVE_SECRET_KEY: report archive credentials
func Deploy() *cobra.Command {
	var opts handlers.DeployOptions

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create, harden and provision the instances of an environment",
		Long: `Deploy runs three phases for the environment descriptor:

  1. infrastructure: create every instance, wait until it is running and
     attach its stable address
  2. security: harden the instances listed in the security policy
  3. services: install the trading services on their instances

Every created resource is recorded in the run journal. When a phase
fails, you are asked whether to roll back: instances are destroyed in
reverse creation order, hardening and installed services are kept.

Examples:
  # Show what would happen
  tradefleet deploy --dry-run

  # Deploy and roll back automatically on failure
  tradefleet deploy -c prod.yaml --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.LogLevel = logLevel
			return handlers.Deploy(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to environment descriptor (default: tradefleet.yaml)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the plan without changing anything")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Roll back a failed run without asking")
	cmd.Flags().BoolVar(&opts.NoTUI, "no-tui", false, "Log progress instead of showing the progress view")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the plan or summary as JSON")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")

	return cmd
}
