package destroy

import (
	"context"
	"fmt"

	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/util/labels"
)

// Cleaner deletes provider resources by label.
// Implemented by internal/platform/hcloud.RealClient.
type Cleaner interface {
	CleanupByLabel(ctx context.Context, labelSelector map[string]string) error
}

// Provisioner handles environment teardown.
type Provisioner struct {
	cleaner Cleaner
}

// NewProvisioner creates a new destroy provisioner.
func NewProvisioner(cleaner Cleaner) *Provisioner {
	return &Provisioner{cleaner: cleaner}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return "destroy"
}

// Provision deletes every resource labelled with the environment name,
// whoever created it.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	ctx.Observer.Printf("[Destroy] Deleting resources of environment %s", ctx.Env.Name)

	selector := map[string]string{labels.KeyEnvironment: ctx.Env.Name}
	if err := p.cleaner.CleanupByLabel(ctx, selector); err != nil {
		return fmt.Errorf("failed to clean up environment %s: %w", ctx.Env.Name, err)
	}

	ctx.Observer.Printf("[Destroy] Environment %s destroyed", ctx.Env.Name)
	return nil
}
