package infrastructure

import (
	"fmt"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/util/labels"
	"github.com/imamik/tradefleet/internal/util/naming"
)

const phase = "infrastructure"

// Provisioner creates the environment's instances.
type Provisioner struct{}

// NewProvisioner creates a new infrastructure provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface. Instances are
// created one at a time and each is recorded before the next starts.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	total := len(ctx.Env.Instances)
	for i, spec := range ctx.Env.Instances {
		ctx.Observer.Progress(phase, i, total)
		if err := p.provisionInstance(ctx, spec); err != nil {
			return err
		}
	}
	ctx.Observer.Progress(phase, total, total)
	return nil
}

func (p *Provisioner) provisionInstance(ctx *provisioning.Context, spec config.InstanceSpec) error {
	env := ctx.Env
	location := env.Location(spec)
	instanceLabels := labels.NewLabelBuilder(env.Name).
		WithInstance(spec.Name).
		WithRunIfSet(ctx.RunID).
		Merge(env.Tags, spec.Tags).
		Build()

	provisioning.LogResourceCreating(ctx.Observer, phase, provisioning.KindInstance, spec.Name)

	inst, err := ctx.Provider.Create(ctx, provisioning.InstanceRequest{
		Name:     naming.Instance(env.Name, spec.Name),
		Image:    spec.Image,
		Size:     spec.Size,
		Location: location,
		KeyPair:  spec.KeyPair,
		Labels:   instanceLabels,
	})

	rec := provisioning.ResourceRecord{
		Key:      provisioning.InstanceKey(spec.Name),
		Kind:     provisioning.KindInstance,
		Name:     spec.Name,
		Instance: spec.Name,
		Region:   location,
	}
	if inst != nil {
		rec.InstanceID = inst.ID
		rec.Address = inst.Address
		ctx.Track(rec)
	}
	if err != nil {
		return fmt.Errorf("failed to create instance %s: %w", spec.Name, err)
	}

	ready, err := ctx.Provider.WaitUntilReady(ctx, inst.ID, ctx.Timeouts.InstanceReady)
	if err != nil {
		return fmt.Errorf("failed waiting for instance %s: %w", spec.Name, err)
	}
	if !ready {
		return fmt.Errorf("instance %s after %v: %w", spec.Name, ctx.Timeouts.InstanceReady, provisioning.ErrReadinessTimeout)
	}

	if rec.Address == "" {
		addr, err := ctx.Provider.GetAddress(ctx, inst.ID)
		if err != nil {
			return fmt.Errorf("failed to get address of instance %s: %w", spec.Name, err)
		}
		rec.Address = addr
	}

	if spec.StableAddress {
		addr, err := p.attachStableAddress(ctx, spec, location, inst.ID, instanceLabels)
		if err != nil {
			return err
		}
		rec.StableAddressName = addr.Name
		rec.StableAddress = addr.Address
		rec.StableAddressOwned = addr.Created
	}

	if err := ctx.Record(rec); err != nil {
		return err
	}
	provisioning.LogResourceCreated(ctx.Observer, phase, rec)
	return nil
}

// attachStableAddress allocates the instance's stable address and points
// it at the instance. An address created here that cannot be attached is
// released again; a reused one is left in place.
func (p *Provisioner) attachStableAddress(
	ctx *provisioning.Context,
	spec config.InstanceSpec,
	location, instanceID string,
	addressLabels map[string]string,
) (*provisioning.StableAddress, error) {
	name := naming.StableAddress(ctx.Env.Name, spec.Name)

	addr, err := ctx.Provider.AllocateStableAddress(ctx, name, location, addressLabels)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate stable address for %s: %w", spec.Name, err)
	}
	if err := ctx.Provider.AttachStableAddress(ctx, name, instanceID); err != nil {
		if addr.Created {
			if releaseErr := ctx.Provider.ReleaseStableAddress(ctx, name); releaseErr != nil {
				ctx.Observer.Warnf("failed to release stable address %s: %v", name, releaseErr)
			}
		}
		return nil, fmt.Errorf("failed to attach stable address %s to %s: %w", name, spec.Name, err)
	}
	if addr.Name == "" {
		addr.Name = name
	}
	return addr, nil
}
