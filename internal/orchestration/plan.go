package orchestration

import (
	"encoding/json"
	"fmt"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/provisioning/security"
	"github.com/imamik/tradefleet/internal/util/naming"
)

// Plan actions.
const (
	ActionCreate        = "create"
	ActionWaitReady     = "wait-ready"
	ActionAllocate      = "allocate-stable-address"
	ActionAttach        = "attach-stable-address"
	ActionDeploy        = "deploy"
	ActionSkip          = "skip"
	ActionHardeningStep = "harden"
)

// PlanStep is one collaborator call a real run would make.
type PlanStep struct {
	Phase    string `json:"phase"`
	Action   string `json:"action"`
	Resource string `json:"resource"` // State key the step contributes to
	Detail   string `json:"detail,omitempty"`
}

// Plan lists the steps of a run in execution order.
type Plan struct {
	Environment string     `json:"environment"`
	Region      string     `json:"region"`
	Steps       []PlanStep `json:"steps"`
}

// JSON returns the plan as indented JSON.
func (p *Plan) JSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Resources returns the distinct state keys the plan would record, in order.
func (p *Plan) Resources() []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range p.Steps {
		if s.Action == ActionSkip || seen[s.Resource] {
			continue
		}
		seen[s.Resource] = true
		out = append(out, s.Resource)
	}
	return out
}

// BuildPlan describes the run for env without calling any collaborator.
// registry is only consulted to mark unknown service kinds; it may be nil,
// in which case the built-in kinds are assumed.
func BuildPlan(env *config.Environment, registry provisioning.ServiceRegistry, timeouts *config.Timeouts) *Plan {
	if timeouts == nil {
		timeouts = config.DefaultTimeouts()
	}
	phases := Phases()
	p := &Plan{Environment: env.Name, Region: env.Region, Steps: []PlanStep{}}

	infra := phases[0].Name()
	for _, spec := range env.Instances {
		key := provisioning.InstanceKey(spec.Name)
		p.add(infra, ActionCreate, key, fmt.Sprintf("%s (%s, %s) in %s",
			naming.Instance(env.Name, spec.Name), spec.Size, spec.Image, env.Location(spec)))
		p.add(infra, ActionWaitReady, key, fmt.Sprintf("timeout %v", timeouts.InstanceReady))
		if spec.StableAddress {
			name := naming.StableAddress(env.Name, spec.Name)
			p.add(infra, ActionAllocate, key, name)
			p.add(infra, ActionAttach, key, name)
		}
	}

	sec := phases[1].Name()
	if policy := env.Security; policy != nil {
		for _, target := range policy.Targets {
			key := provisioning.SecurityKey(target)
			access := env.AccessFor(target)
			p.add(sec, ActionHardeningStep, key, fmt.Sprintf("%s as %s on port %d (on failure: %s)",
				security.StepConnect, config.DefaultSSHUser, config.DefaultSSHPort, policy.StepFailurePolicy()))
			for _, step := range security.Steps() {
				detail := step
				switch step {
				case security.StepFirewall:
					detail = fmt.Sprintf("%s profile %s", step, policy.Profile())
					if policy.VPNNetwork != "" {
						detail += " from " + policy.VPNNetwork
					}
				case security.StepSSHLockdown:
					detail = fmt.Sprintf("%s to %s on port %d", step, access.User, access.Port)
				}
				p.add(sec, ActionHardeningStep, key, detail)
			}
		}
	}

	svc := phases[2].Name()
	for _, spec := range env.Services {
		key := provisioning.ServiceKey(spec.Kind, spec.Target)
		if !knownKind(registry, spec.Kind) {
			p.add(svc, ActionSkip, key, fmt.Sprintf("unknown service kind %q", spec.Kind))
			continue
		}
		p.add(svc, ActionDeploy, key, fmt.Sprintf("%s to %s", naming.ServiceUnit(spec.Kind), spec.Target))
	}
	return p
}

func (p *Plan) add(phase, action, resource, detail string) {
	p.Steps = append(p.Steps, PlanStep{Phase: phase, Action: action, Resource: resource, Detail: detail})
}

func knownKind(registry provisioning.ServiceRegistry, kind string) bool {
	if registry == nil {
		for _, k := range config.KnownServiceKinds {
			if k == kind {
				return true
			}
		}
		return false
	}
	_, ok := registry.Lookup(kind)
	return ok
}
