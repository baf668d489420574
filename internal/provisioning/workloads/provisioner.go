package workloads

import (
	"fmt"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/provisioning"
)

const phase = "services"

// Provisioner installs services.
type Provisioner struct{}

// NewProvisioner creates a new services provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface. Services whose
// kind has no registered factory are skipped with a warning; every other
// failure ends the phase.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	total := len(ctx.Env.Services)
	for i, svc := range ctx.Env.Services {
		ctx.Observer.Progress(phase, i, total)
		if err := p.deployService(ctx, svc); err != nil {
			return err
		}
	}
	ctx.Observer.Progress(phase, total, total)
	return nil
}

func (p *Provisioner) deployService(ctx *provisioning.Context, svc config.ServiceSpec) error {
	key := provisioning.ServiceKey(svc.Kind, svc.Target)

	factory, ok := ctx.Services.Lookup(svc.Kind)
	if !ok {
		provisioning.LogResourceSkipped(ctx.Observer, phase, key, fmt.Sprintf("unknown service kind %q", svc.Kind))
		return nil
	}

	address, err := ctx.ResolveAddress(svc.Target)
	if err != nil {
		return fmt.Errorf("service %s on %s: %w", svc.Kind, svc.Target, err)
	}

	provisioning.LogResourceCreating(ctx.Observer, phase, provisioning.KindService, key)

	deployer, err := factory.New(provisioning.ServiceConfig{
		Environment: ctx.Env.Name,
		Kind:        svc.Kind,
		Target:      svc.Target,
		Address:     address,
		Access:      ctx.Env.AccessFor(svc.Target),
		Settings:    provisioning.MergeSettings(factory.Defaults(), svc.Config),
	})
	if err != nil {
		return fmt.Errorf("invalid %s configuration for %s: %w", svc.Kind, svc.Target, err)
	}
	if err := deployer.Deploy(ctx, []string{address}); err != nil {
		return fmt.Errorf("failed to deploy %s to %s: %w", svc.Kind, svc.Target, err)
	}

	rec := provisioning.ResourceRecord{
		Key:      key,
		Kind:     provisioning.KindService,
		Name:     svc.Kind,
		Instance: svc.Target,
		Address:  address,
	}
	if inst, ok := ctx.State.Instance(svc.Target); ok {
		rec.Region = inst.Region
	}
	if err := ctx.Record(rec); err != nil {
		return err
	}
	provisioning.LogResourceCreated(ctx.Observer, phase, rec)
	return nil
}
