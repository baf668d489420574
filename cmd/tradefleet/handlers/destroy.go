package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/provisioning/destroy"
)

// Phase matches provisioning.Phase.
type Phase interface {
	Name() string
	Provision(ctx *provisioning.Context) error
}

// newDestroyProvisioner creates the teardown phase. Tests replace it.
var newDestroyProvisioner = func(cleaner destroy.Cleaner) Phase {
	return destroy.NewProvisioner(cleaner)
}

// Destroy deletes every resource labelled with the environment name,
// including instances no journal knows about.
func Destroy(ctx context.Context, configPath string, assumeYes bool, logLevel string) error {
	env, err := loadEnvironment(configPath)
	if err != nil {
		return err
	}

	err = confirmOrRefuse(ctx, assumeYes,
		fmt.Sprintf("Destroy environment %s?", env.Name),
		"Every server and floating IP labelled with this environment is deleted. This cannot be undone.")
	if err != nil {
		return err
	}

	creds, err := prepare()
	if err != nil {
		return err
	}
	logger := newLogger(logLevel)
	timeouts := loadTimeouts()

	_, cleaner, err := newInfrastructure(creds, timeouts, logger)
	if err != nil {
		return err
	}

	pctx := provisioning.NewContext(ctx, env, "")
	pctx.Observer = provisioning.NewSlogObserver(logger)
	pctx.Timeouts = timeouts

	if err := newDestroyProvisioner(cleaner).Provision(pctx); err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}
	fmt.Fprintf(stdout, "Environment %s destroyed\n", env.Name)
	return nil
}
