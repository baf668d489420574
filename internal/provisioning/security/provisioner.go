package security

import (
	"context"
	"fmt"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/provisioning"
)

const phase = "security"

// Hardening step names, in execution order.
const (
	StepConnect             = "connect"
	StepBaseHardening       = "base-hardening"
	StepFirewall            = "firewall"
	StepSSHLockdown         = "ssh-lockdown"
	StepIntrusionPrevention = "intrusion-prevention"
)

// Steps returns the hardening steps in execution order.
func Steps() []string {
	return []string{StepBaseHardening, StepFirewall, StepSSHLockdown, StepIntrusionPrevention}
}

// Provisioner hardens security targets.
type Provisioner struct{}

// NewProvisioner creates a new security provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	policy := ctx.Env.Security
	if policy == nil || len(policy.Targets) == 0 {
		ctx.Observer.Printf("[%s] no security policy, nothing to harden", phase)
		return nil
	}

	total := len(policy.Targets)
	for i, name := range policy.Targets {
		ctx.Observer.Progress(phase, i, total)
		if err := p.hardenTarget(ctx, policy, name); err != nil {
			return err
		}
	}
	ctx.Observer.Progress(phase, total, total)
	return nil
}

type step struct {
	name string
	run  func(context.Context) error
}

func (p *Provisioner) hardenTarget(ctx *provisioning.Context, policy *config.SecurityPolicy, name string) error {
	address, err := ctx.ResolveAddress(name)
	if err != nil {
		return fmt.Errorf("security target %s: %w", name, err)
	}

	provisioning.LogResourceCreating(ctx.Observer, phase, provisioning.KindSecurity, name)

	abort := policy.StepFailurePolicy() == config.StepFailureAbort
	access := ctx.Env.AccessFor(name)
	rec := provisioning.ResourceRecord{
		Key:      provisioning.SecurityKey(name),
		Kind:     provisioning.KindSecurity,
		Name:     name,
		Instance: name,
		Address:  address,
	}
	if inst, ok := ctx.State.Instance(name); ok {
		rec.Region = inst.Region
	}

	configurer, err := ctx.Security.New(provisioning.SecurityTarget{
		Instance:   name,
		Address:    address,
		SSHUser:    access.User,
		SSHPort:    access.Port,
		KeyPath:    access.KeyPath,
		VPNNetwork: policy.VPNNetwork,
	})
	if err != nil {
		if abort {
			return fmt.Errorf("hardening step %s failed on %s: %w", StepConnect, name, err)
		}
		provisioning.LogStepWarning(ctx.Observer, phase, name, StepConnect, err)
		rec.FailedSteps = append([]string{StepConnect}, Steps()...)
		return p.record(ctx, rec)
	}
	defer func() {
		if err := configurer.Close(); err != nil {
			ctx.Observer.Warnf("[%s] failed to close connection to %s: %v", phase, name, err)
		}
	}()

	profile := policy.Profile()
	steps := []step{
		{StepBaseHardening, configurer.ApplyBaseHardening},
		{StepFirewall, func(c context.Context) error { return configurer.ApplyFirewall(c, profile) }},
		{StepSSHLockdown, configurer.HardenSSH},
		{StepIntrusionPrevention, configurer.InstallIntrusionPrevention},
	}
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			if abort {
				return fmt.Errorf("hardening step %s failed on %s: %w", s.name, name, err)
			}
			provisioning.LogStepWarning(ctx.Observer, phase, name, s.name, err)
			rec.FailedSteps = append(rec.FailedSteps, s.name)
			continue
		}
		rec.AppliedSteps = append(rec.AppliedSteps, s.name)
	}

	return p.record(ctx, rec)
}

func (p *Provisioner) record(ctx *provisioning.Context, rec provisioning.ResourceRecord) error {
	if err := ctx.Record(rec); err != nil {
		return err
	}
	provisioning.LogResourceCreated(ctx.Observer, phase, rec)
	return nil
}
