package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/ui/tui"
)

// Runs lists journaled runs, optionally only those of one environment.
func Runs(environment string, asJSON bool, logLevel string) error {
	logger := newLogger(logLevel)
	store, err := openJournal(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close journal", "error", err)
		}
	}()

	all, err := store.Runs()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	runs := make([]provisioning.RunInfo, 0, len(all))
	for _, run := range all {
		if environment == "" || run.Environment == environment {
			runs = append(runs, run)
		}
	}

	if asJSON {
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode runs: %w", err)
		}
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}
	_, err = fmt.Fprint(stdout, tui.RenderRuns(runs))
	return err
}
