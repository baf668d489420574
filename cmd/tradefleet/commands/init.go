package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/tradefleet/cmd/tradefleet/handlers"
)

// Init returns the command that writes a new descriptor interactively.
func Init() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an environment descriptor interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), output, force)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write (default: tradefleet.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
