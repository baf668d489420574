package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/config/wizard"
)

// runWizard asks for the descriptor. Tests replace it.
var runWizard = wizard.RunWizard

// Init writes a new descriptor from the answers of an interactive form.
func Init(ctx context.Context, outputPath string, force bool) error {
	if outputPath == "" {
		outputPath = config.DefaultConfigFilename
	}
	if !isInteractive() {
		return fmt.Errorf("init needs an interactive terminal; write %s by hand instead", outputPath)
	}

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}
	if err := config.Save(outputPath, result.ToEnvironment(), force); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Wrote %s\nNext: tradefleet plan -c %s\n", outputPath, outputPath)
	return nil
}
