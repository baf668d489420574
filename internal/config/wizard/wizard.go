package wizard

import (
	"context"
	"fmt"
	"regexp"

	"github.com/charmbracelet/huh"

	"github.com/imamik/tradefleet/internal/config"
)

// nameRegex matches a DNS label of up to 40 characters.
var nameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,38}[a-z0-9])?$`)

// Defaults offered by the form.
const (
	DefaultRegion = "fsn1"
	DefaultImage  = "ubuntu-24.04"
	DefaultSize   = "cx22"
)

// Result holds the wizard answers.
type Result struct {
	Name            string
	Region          string
	InstanceCount   int
	Size            string
	StableAddress   bool
	Harden          bool
	FirewallProfile string
	Services        []string
}

// NewResult returns a Result preset with the form defaults.
func NewResult() *Result {
	return &Result{
		Region:          DefaultRegion,
		InstanceCount:   1,
		Size:            DefaultSize,
		StableAddress:   true,
		Harden:          true,
		FirewallProfile: config.FirewallProfileTrading,
		Services:        []string{config.ServiceKindTradingBot, config.ServiceKindMonitor},
	}
}

// RunWizard runs the interactive form.
func RunWizard(ctx context.Context) (*Result, error) {
	result := NewResult()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Environment name").
				Description("Lowercase letters, numbers and hyphens").
				Placeholder("prod").
				Value(&result.Name).
				Validate(validateName),
			huh.NewSelect[string]().
				Title("Region").
				Options(
					huh.NewOption("Falkenstein (fsn1)", "fsn1"),
					huh.NewOption("Nuremberg (nbg1)", "nbg1"),
					huh.NewOption("Helsinki (hel1)", "hel1"),
					huh.NewOption("Ashburn (ash)", "ash"),
					huh.NewOption("Hillsboro (hil)", "hil"),
				).
				Value(&result.Region),
		).Title("Environment"),

		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Number of instances").
				Options(
					huh.NewOption("1 instance", 1),
					huh.NewOption("2 instances", 2),
					huh.NewOption("3 instances", 3),
				).
				Value(&result.InstanceCount),
			huh.NewSelect[string]().
				Title("Instance size").
				Options(
					huh.NewOption("cx22 (2 vCPU, 4 GB)", "cx22"),
					huh.NewOption("cx32 (4 vCPU, 8 GB)", "cx32"),
					huh.NewOption("cx42 (8 vCPU, 16 GB)", "cx42"),
				).
				Value(&result.Size),
			huh.NewConfirm().
				Title("Stable address for the first instance?").
				Description("A floating IP that survives instance replacement").
				Value(&result.StableAddress),
		).Title("Instances"),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Harden instances?").
				Description("Base hardening, firewall, SSH lock-down and intrusion prevention").
				Value(&result.Harden),
			huh.NewSelect[string]().
				Title("Firewall profile").
				Options(
					huh.NewOption("Trading", config.FirewallProfileTrading),
					huh.NewOption("Monitoring", config.FirewallProfileMonitoring),
					huh.NewOption("Default", config.FirewallProfileDefault),
				).
				Value(&result.FirewallProfile),
		).Title("Security"),

		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Services").
				Description("Installed on the first instance").
				Options(serviceOptions()...).
				Value(&result.Services),
		).Title("Services"),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}
	return result, nil
}

// ToEnvironment builds the descriptor. Instances are named node-a,
// node-b and so on; services go to the first instance.
func (r *Result) ToEnvironment() *config.Environment {
	env := &config.Environment{
		Name:   r.Name,
		Region: r.Region,
	}

	for i := range max(r.InstanceCount, 1) {
		env.Instances = append(env.Instances, config.InstanceSpec{
			Name:          fmt.Sprintf("node-%c", 'a'+i),
			Image:         DefaultImage,
			Size:          r.Size,
			StableAddress: r.StableAddress && i == 0,
		})
	}

	if r.Harden {
		policy := &config.SecurityPolicy{FirewallProfile: r.FirewallProfile}
		for _, inst := range env.Instances {
			policy.Targets = append(policy.Targets, inst.Name)
		}
		env.Security = policy
	}

	for _, kind := range r.Services {
		env.Services = append(env.Services, config.ServiceSpec{Kind: kind, Target: env.Instances[0].Name})
	}
	return env
}

func serviceOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(config.KnownServiceKinds))
	for _, kind := range config.KnownServiceKinds {
		opts = append(opts, huh.NewOption(kind, kind))
	}
	return opts
}

func validateName(s string) error {
	if s == "" {
		return fmt.Errorf("environment name is required")
	}
	if !nameRegex.MatchString(s) {
		return fmt.Errorf("environment name must be a DNS label of at most 40 characters")
	}
	return nil
}
