package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/imamik/tradefleet/internal/orchestration"
	"github.com/imamik/tradefleet/internal/ui/tui"
)

// Report prints an archived run report, or lists the archived runs when
// runID is empty.
func Report(ctx context.Context, configPath, runID string, asJSON bool) error {
	env, err := loadEnvironment(configPath)
	if err != nil {
		return err
	}
	if env.Archive == nil {
		return errors.New("no archive is configured for " + env.Name)
	}

	creds, err := prepare()
	if err != nil {
		return err
	}
	archive, err := newArchive(ctx, env.Archive, creds)
	if err != nil {
		return err
	}

	if runID == "" {
		runs, err := archive.Runs(ctx, env.Name)
		if err != nil {
			return fmt.Errorf("failed to list archived runs: %w", err)
		}
		for _, id := range runs {
			fmt.Fprintln(stdout, id)
		}
		return nil
	}

	data, err := archive.Fetch(ctx, env.Name, runID)
	if err != nil {
		return fmt.Errorf("failed to fetch report of run %s: %w", runID, err)
	}
	if asJSON {
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}

	var summary orchestration.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return fmt.Errorf("failed to decode report of run %s: %w", runID, err)
	}
	_, err = fmt.Fprint(stdout, tui.RenderSummary(&summary))
	return err
}
