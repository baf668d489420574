package orchestration

import (
	"encoding/json"
	"time"

	"github.com/imamik/tradefleet/internal/provisioning"
)

// InstanceSummary is one created instance.
type InstanceSummary struct {
	Name          string `json:"name"`
	ID            string `json:"id"`
	Region        string `json:"region,omitempty"`
	Address       string `json:"address,omitempty"`
	StableAddress string `json:"stable_address,omitempty"`
}

// HardeningSummary is the hardening result of one instance.
type HardeningSummary struct {
	Instance string   `json:"instance"`
	Applied  []string `json:"applied"`
	Failed   []string `json:"failed,omitempty"`
}

// ServiceSummary is one installed service.
type ServiceSummary struct {
	Kind     string `json:"kind"`
	Instance string `json:"instance"`
	Address  string `json:"address,omitempty"`
}

// PhaseSummary is the outcome of one phase.
type PhaseSummary struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Summary reports a finished run.
type Summary struct {
	RunID       string                            `json:"run_id"`
	Environment string                            `json:"environment"`
	Success     bool                              `json:"success"`
	Error       string                            `json:"error,omitempty"`
	StartedAt   time.Time                         `json:"started_at"`
	FinishedAt  time.Time                         `json:"finished_at"`
	Counts      map[provisioning.ResourceKind]int `json:"counts"`
	Instances   []InstanceSummary                 `json:"instances"`
	Hardening   []HardeningSummary                `json:"hardening,omitempty"`
	Services    []ServiceSummary                  `json:"services,omitempty"`
	Phases      []PhaseSummary                    `json:"phases"`
	Rollback    *RollbackReport                   `json:"rollback,omitempty"`
	ArchiveKey  string                            `json:"archive_key,omitempty"`
}

// JSON returns the summary as indented JSON.
func (s *Summary) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Duration returns the wall time of the run.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

func (o *Orchestrator) buildSummary(success bool) *Summary {
	s := &Summary{
		RunID:       o.runID,
		Environment: o.env.Name,
		Success:     success,
		StartedAt:   o.startAt,
		FinishedAt:  o.now().UTC(),
		Counts: map[provisioning.ResourceKind]int{
			provisioning.KindInstance: 0,
			provisioning.KindSecurity: 0,
			provisioning.KindService:  0,
		},
		Instances: []InstanceSummary{},
		Phases:    []PhaseSummary{},
		Rollback:  o.rollback,
	}
	if o.err != nil {
		s.Error = o.err.Error()
	}

	for _, rec := range o.State().Records() {
		s.Counts[rec.Kind]++
		switch rec.Kind {
		case provisioning.KindInstance:
			s.Instances = append(s.Instances, InstanceSummary{
				Name:          rec.Name,
				ID:            rec.InstanceID,
				Region:        rec.Region,
				Address:       rec.Address,
				StableAddress: rec.StableAddress,
			})
		case provisioning.KindSecurity:
			s.Hardening = append(s.Hardening, HardeningSummary{
				Instance: rec.Instance,
				Applied:  rec.AppliedSteps,
				Failed:   rec.FailedSteps,
			})
		case provisioning.KindService:
			s.Services = append(s.Services, ServiceSummary{
				Kind:     rec.Name,
				Instance: rec.Instance,
				Address:  rec.Address,
			})
		}
	}

	for _, t := range o.timings {
		ps := PhaseSummary{Name: t.Phase, Duration: t.Duration}
		if t.Err != nil {
			ps.Error = t.Err.Error()
		}
		s.Phases = append(s.Phases, ps)
	}
	return s
}
