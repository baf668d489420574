package config

import "slices"

// Service kinds understood by the services phase.
const (
	ServiceKindDataCollector = "data-collector"
	ServiceKindMonitor       = "monitor"
	ServiceKindTradingBot    = "trading-bot"
)

// KnownServiceKinds lists every service kind with a registered deployer.
var KnownServiceKinds = []string{
	ServiceKindDataCollector,
	ServiceKindMonitor,
	ServiceKindTradingBot,
}

// Hardening step failure policies.
const (
	StepFailureWarn  = "warn"
	StepFailureAbort = "abort"
)

// Firewall profiles.
const (
	FirewallProfileDefault    = "default"
	FirewallProfileTrading    = "trading"
	FirewallProfileMonitoring = "monitoring"
)

// Environment is the validated environment descriptor for one deployment run.
type Environment struct {
	Name        string            `yaml:"name" validate:"required,hostname_rfc1123,max=40"`
	Description string            `yaml:"description,omitempty"`
	Region      string            `yaml:"region" validate:"required"`
	Tags        map[string]string `yaml:"tags,omitempty"`

	// SSH is the default access used to reach instances that are not
	// covered by the security policy.
	SSH SSHConfig `yaml:"ssh,omitempty"`

	Instances []InstanceSpec  `yaml:"instances" validate:"dive"`
	Security  *SecurityPolicy `yaml:"security,omitempty"`
	Services  []ServiceSpec   `yaml:"services" validate:"dive"`

	Archive *ArchiveConfig `yaml:"archive,omitempty"`
}

// InstanceSpec describes one compute instance.
type InstanceSpec struct {
	Name          string            `yaml:"name" validate:"required,hostname_rfc1123,max=40"`
	Image         string            `yaml:"image" validate:"required"`
	Size          string            `yaml:"size" validate:"required"`
	Zone          string            `yaml:"zone,omitempty"`
	KeyPair       string            `yaml:"key_pair,omitempty"`
	StableAddress bool              `yaml:"stable_address,omitempty"`
	Tags          map[string]string `yaml:"tags,omitempty"`
}

// SSHConfig holds the parameters used to reach an instance over SSH.
type SSHConfig struct {
	Port    int    `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	User    string `yaml:"user,omitempty"`
	KeyPath string `yaml:"key_path,omitempty"`
}

// SecurityPolicy describes which instances get hardened and how.
type SecurityPolicy struct {
	Targets         []string  `yaml:"targets" validate:"required,min=1,dive,required"`
	SSH             SSHConfig `yaml:"ssh,omitempty"`
	VPNNetwork      string    `yaml:"vpn_network,omitempty" validate:"omitempty,cidrv4"`
	FirewallProfile string    `yaml:"firewall_profile,omitempty" validate:"omitempty,oneof=default trading monitoring"`
	OnStepFailure   string    `yaml:"on_step_failure,omitempty" validate:"omitempty,oneof=warn abort"`
}

// ServiceSpec describes one workload to install on an instance.
type ServiceSpec struct {
	Kind   string         `yaml:"kind" validate:"required"`
	Target string         `yaml:"target" validate:"required"`
	Config map[string]any `yaml:"config,omitempty"`
}

// ArchiveConfig points at an S3-compatible bucket receiving run reports.
type ArchiveConfig struct {
	Bucket   string `yaml:"bucket" validate:"required"`
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	Region   string `yaml:"region,omitempty"`
}

// Instance returns the instance spec with the given name.
func (e *Environment) Instance(name string) (InstanceSpec, bool) {
	for _, inst := range e.Instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return InstanceSpec{}, false
}

// IsSecurityTarget reports whether the named instance is hardened by the security policy.
func (e *Environment) IsSecurityTarget(name string) bool {
	return e.Security != nil && slices.Contains(e.Security.Targets, name)
}

// AccessFor returns the SSH parameters used to reach the named instance.
// Hardened instances use the security policy's parameters, everything
// else the environment defaults.
func (e *Environment) AccessFor(name string) SSHConfig {
	access := e.SSH
	if e.IsSecurityTarget(name) {
		access = mergeSSH(access, e.Security.SSH)
	}
	return access.WithDefaults()
}

// Location returns the Hetzner location for an instance: its zone if set,
// otherwise the environment region.
func (e *Environment) Location(spec InstanceSpec) string {
	if spec.Zone != "" {
		return spec.Zone
	}
	return e.Region
}

// StepFailurePolicy returns the effective hardening failure policy.
func (p *SecurityPolicy) StepFailurePolicy() string {
	if p == nil || p.OnStepFailure == "" {
		return StepFailureWarn
	}
	return p.OnStepFailure
}

// Profile returns the effective firewall profile.
func (p *SecurityPolicy) Profile() string {
	if p == nil || p.FirewallProfile == "" {
		return FirewallProfileDefault
	}
	return p.FirewallProfile
}

// WithDefaults fills empty fields with the package defaults.
func (s SSHConfig) WithDefaults() SSHConfig {
	if s.Port == 0 {
		s.Port = DefaultSSHPort
	}
	if s.User == "" {
		s.User = DefaultSSHUser
	}
	if s.KeyPath == "" {
		s.KeyPath = DefaultSSHKeyPath
	}
	return s
}

func mergeSSH(base, override SSHConfig) SSHConfig {
	if override.Port != 0 {
		base.Port = override.Port
	}
	if override.User != "" {
		base.User = override.User
	}
	if override.KeyPath != "" {
		base.KeyPath = override.KeyPath
	}
	return base
}
