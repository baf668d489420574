package provisioning

import (
	"context"
	"time"

	"github.com/imamik/tradefleet/internal/config"
)

// Phase defines the interface for a deployment phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Provision executes the logic for this phase.
	Provision(ctx *Context) error
}

// InstanceRequest describes an instance to create.
type InstanceRequest struct {
	Name     string // Provider-side name, already prefixed with the environment
	Image    string
	Size     string
	Location string
	KeyPair  string
	Labels   map[string]string
}

// Instance is the provider's view of a created instance.
type Instance struct {
	ID      string
	Name    string
	Address string // Public IPv4, may be empty until the instance is running
}

// StableAddress is a provider address that survives instance replacement.
type StableAddress struct {
	ID      string
	Name    string
	Address string

	// Created is set when the allocation created the address rather than
	// reusing one that already existed.
	Created bool
}

// InfrastructureProvider creates and destroys compute instances.
// Implemented by internal/provider.HetznerProvider.
type InfrastructureProvider interface {
	// Create creates an instance and returns once the provider accepted it.
	Create(ctx context.Context, req InstanceRequest) (*Instance, error)

	// Destroy deletes an instance. An instance that no longer exists is not an error.
	Destroy(ctx context.Context, id string) error

	// GetAddress returns the public address of an instance, or "" if it has none yet.
	GetAddress(ctx context.Context, id string) (string, error)

	// WaitUntilReady polls until the instance is running. A timeout yields
	// (false, nil); only provider failures are returned as errors.
	WaitUntilReady(ctx context.Context, id string, timeout time.Duration) (bool, error)

	// AllocateStableAddress returns the named stable address, allocating it if needed.
	AllocateStableAddress(ctx context.Context, name, location string, labels map[string]string) (*StableAddress, error)

	// AttachStableAddress points the named stable address at an instance.
	AttachStableAddress(ctx context.Context, name, instanceID string) error

	// ReleaseStableAddress deletes the named stable address. A missing address is not an error.
	ReleaseStableAddress(ctx context.Context, name string) error
}

// SecurityTarget identifies a host to harden and how to reach it.
type SecurityTarget struct {
	Instance   string
	Address    string
	SSHUser    string
	SSHPort    int
	KeyPath    string
	VPNNetwork string
}

// SecurityConfigurer applies hardening steps to one host.
// Implemented by internal/hardening.Configurer.
type SecurityConfigurer interface {
	ApplyBaseHardening(ctx context.Context) error
	ApplyFirewall(ctx context.Context, profile string) error
	HardenSSH(ctx context.Context) error
	InstallIntrusionPrevention(ctx context.Context) error
	Close() error
}

// SecurityConfigurerFactory builds a configurer for a target.
type SecurityConfigurerFactory interface {
	New(target SecurityTarget) (SecurityConfigurer, error)
}

// ServiceConfig is the input for one service deployment.
type ServiceConfig struct {
	Environment string
	Kind        string
	Target      string // Instance name
	Address     string
	Access      config.SSHConfig
	Settings    map[string]any // Descriptor settings merged over the kind defaults
}

// ServiceDeployer installs one service on its target hosts.
type ServiceDeployer interface {
	Deploy(ctx context.Context, targets []string) error
}

// ServiceFactory builds deployers for one service kind.
type ServiceFactory interface {
	// Defaults returns the settings a descriptor entry is merged over.
	Defaults() map[string]any

	// New builds a deployer for one descriptor entry.
	New(cfg ServiceConfig) (ServiceDeployer, error)
}

// ServiceRegistry resolves a service kind to its factory.
// Implemented by internal/services.Registry.
type ServiceRegistry interface {
	Lookup(kind string) (ServiceFactory, bool)
}

// Journal persists resource records as they are created so that a run
// can be rolled back from another process.
// Implemented by internal/storage/journal.Store.
type Journal interface {
	Begin(run RunInfo) error
	Append(runID string, rec ResourceRecord) error
	Finish(runID string, status RunStatus) error
	Records(runID string) ([]ResourceRecord, error)
	Runs() ([]RunInfo, error)
}
