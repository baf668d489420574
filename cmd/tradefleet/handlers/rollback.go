package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/tradefleet/internal/orchestration"
	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/ui/tui"
)

// RollbackOptions are the flags of the rollback command.
type RollbackOptions struct {
	ConfigPath string
	RunID      string // Defaults to the latest run of the environment
	Yes        bool
	LogLevel   string
}

// Rollback destroys the instances of a journaled run, newest first.
// It works from a separate process, for example after the deploying
// process was killed.
func Rollback(ctx context.Context, opts RollbackOptions) error {
	creds, err := prepare()
	if err != nil {
		return err
	}
	logger := newLogger(opts.LogLevel)
	timeouts := loadTimeouts()

	store, err := openJournal(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close journal", "error", err)
		}
	}()

	run, err := selectRun(store, opts)
	if err != nil {
		return err
	}
	if run.Status == provisioning.RunRunning {
		logger.Warn("run is still marked as running; make sure its process has exited", "run", run.ID)
	}

	err = confirmOrRefuse(ctx, opts.Yes,
		fmt.Sprintf("Roll back run %s of %s?", run.ID, run.Environment),
		fmt.Sprintf("Status %s. Every instance of the run is destroyed.", run.Status))
	if err != nil {
		return err
	}

	infra, _, err := newInfrastructure(creds, timeouts, logger)
	if err != nil {
		return err
	}

	rctx, cancel := context.WithTimeout(ctx, timeouts.Rollback)
	defer cancel()

	report, err := orchestration.RecoverRun(rctx, run.ID,
		orchestration.Dependencies{Provider: infra, Journal: store, Metrics: provisioning.NewMetrics(run.Environment)},
		orchestration.WithObserver(provisioning.NewSlogObserver(logger)),
	)
	if report != nil {
		fmt.Fprint(stdout, tui.RenderRollback(report))
	}
	if err != nil {
		return err
	}
	if !report.Complete() {
		return fmt.Errorf("rollback of run %s incomplete: %d failures", run.ID, len(report.Failures))
	}
	return nil
}

// selectRun returns the requested run, or the latest run of the
// environment in the descriptor.
func selectRun(store journalStore, opts RollbackOptions) (provisioning.RunInfo, error) {
	if opts.RunID != "" {
		run, err := store.Run(opts.RunID)
		if err != nil {
			return provisioning.RunInfo{}, fmt.Errorf("failed to load run %s: %w", opts.RunID, err)
		}
		return run, nil
	}

	env, err := loadEnvironment(opts.ConfigPath)
	if err != nil {
		return provisioning.RunInfo{}, err
	}
	run, err := store.LatestRun(env.Name)
	if err != nil {
		return provisioning.RunInfo{}, fmt.Errorf("no run to roll back for %s: %w", env.Name, err)
	}
	return run, nil
}
