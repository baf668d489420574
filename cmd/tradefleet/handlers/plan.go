package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/orchestration"
	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/ui/tui"
)

// Plan prints what a deployment of the descriptor would do.
func Plan(ctx context.Context, configPath string, asJSON bool, logLevel string) error {
	env, err := loadEnvironment(configPath)
	if err != nil {
		return err
	}
	return printPlan(ctx, env, asJSON, logLevel)
}

// printPlan runs the orchestrator in dry-run mode. No credentials are
// needed and neither the provider nor the journal is touched.
func printPlan(ctx context.Context, env *config.Environment, asJSON bool, logLevel string) error {
	logger := newLogger(logLevel)
	o := orchestration.New(env,
		orchestration.Dependencies{Services: newServiceRegistry(logger)},
		orchestration.WithObserver(provisioning.NewSlogObserver(logger)),
		orchestration.WithTimeouts(loadTimeouts()),
	)
	o.Deploy(ctx, true)

	plan := o.Plan()
	if asJSON {
		data, err := plan.JSON()
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}
	_, err := fmt.Fprint(stdout, tui.RenderPlan(plan))
	return err
}
