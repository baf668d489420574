package testing

import (
	"maps"
	"slices"

	"github.com/imamik/tradefleet/internal/config"
)

// EnvironmentBuilder provides a fluent interface for constructing test
// descriptors. Each method returns a new builder (immutable) for chaining.
type EnvironmentBuilder struct {
	env config.Environment
}

// NewEnvironmentBuilder creates a builder with sensible defaults.
func NewEnvironmentBuilder(name string) *EnvironmentBuilder {
	return &EnvironmentBuilder{
		env: config.Environment{
			Name:   name,
			Region: "fsn1",
			SSH:    config.SSHConfig{User: "root", KeyPath: "/keys/test"},
		},
	}
}

// WithRegion sets the region.
func (b *EnvironmentBuilder) WithRegion(region string) *EnvironmentBuilder {
	nb := b.clone()
	nb.env.Region = region
	return nb
}

// WithTags sets the global tags.
func (b *EnvironmentBuilder) WithTags(tags map[string]string) *EnvironmentBuilder {
	nb := b.clone()
	nb.env.Tags = maps.Clone(tags)
	return nb
}

// WithInstance adds an instance with default image and size.
func (b *EnvironmentBuilder) WithInstance(name string) *EnvironmentBuilder {
	return b.WithInstanceSpec(config.InstanceSpec{Name: name, Image: "ubuntu-24.04", Size: "cx22"})
}

// WithStableInstance adds an instance with a stable address.
func (b *EnvironmentBuilder) WithStableInstance(name string) *EnvironmentBuilder {
	return b.WithInstanceSpec(config.InstanceSpec{Name: name, Image: "ubuntu-24.04", Size: "cx22", StableAddress: true})
}

// WithInstanceSpec adds an instance.
func (b *EnvironmentBuilder) WithInstanceSpec(spec config.InstanceSpec) *EnvironmentBuilder {
	nb := b.clone()
	nb.env.Instances = append(nb.env.Instances, spec)
	return nb
}

// WithSecurity sets a security policy hardening targets.
func (b *EnvironmentBuilder) WithSecurity(policy config.SecurityPolicy) *EnvironmentBuilder {
	nb := b.clone()
	policy.Targets = slices.Clone(policy.Targets)
	nb.env.Security = &policy
	return nb
}

// WithService adds a service without settings.
func (b *EnvironmentBuilder) WithService(kind, target string) *EnvironmentBuilder {
	return b.WithServiceConfig(kind, target, nil)
}

// WithServiceConfig adds a service with settings.
func (b *EnvironmentBuilder) WithServiceConfig(kind, target string, settings map[string]any) *EnvironmentBuilder {
	nb := b.clone()
	nb.env.Services = append(nb.env.Services, config.ServiceSpec{Kind: kind, Target: target, Config: settings})
	return nb
}

// Build returns the descriptor.
func (b *EnvironmentBuilder) Build() *config.Environment {
	env := b.clone().env
	return &env
}

func (b *EnvironmentBuilder) clone() *EnvironmentBuilder {
	env := b.env
	env.Tags = maps.Clone(b.env.Tags)
	env.Instances = slices.Clone(b.env.Instances)
	env.Services = slices.Clone(b.env.Services)
	if b.env.Security != nil {
		sec := *b.env.Security
		sec.Targets = slices.Clone(sec.Targets)
		env.Security = &sec
	}
	return &EnvironmentBuilder{env: env}
}
