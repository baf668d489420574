package provisioning

import (
	"fmt"
	"slices"
	"time"
)

// ResourceKind classifies a resource record.
type ResourceKind string

// Resource kinds, in the order their phases run.
const (
	KindInstance ResourceKind = "instance"
	KindSecurity ResourceKind = "security"
	KindService  ResourceKind = "service"
)

// ResourceRecord tracks one resource created during a run.
// Records are values and are never modified after being appended.
type ResourceRecord struct {
	Key       string       `json:"key"`
	Kind      ResourceKind `json:"kind"`
	Name      string       `json:"name"`     // Instance name (instance, security) or service kind (service)
	Instance  string       `json:"instance"` // Instance the resource belongs to
	Region    string       `json:"region,omitempty"`
	CreatedAt time.Time    `json:"created_at"`

	// Instance results.
	InstanceID        string `json:"instance_id,omitempty"`
	Address           string `json:"address,omitempty"`
	StableAddressName string `json:"stable_address_name,omitempty"`
	StableAddress     string `json:"stable_address,omitempty"`
	// StableAddressOwned is set when this run created the stable address.
	// Rollback releases only owned addresses.
	StableAddressOwned bool `json:"stable_address_owned,omitempty"`

	// Security results.
	AppliedSteps []string `json:"applied_steps,omitempty"`
	FailedSteps  []string `json:"failed_steps,omitempty"`

	// Pending marks an instance that exists at the provider but has not
	// finished its creation step. Pending records are journaled only and
	// never enter State.
	Pending bool `json:"pending,omitempty"`
}

// InstanceKey returns the state key for an instance.
func InstanceKey(name string) string { return "instance/" + name }

// SecurityKey returns the state key for the hardening of an instance.
func SecurityKey(name string) string { return "security/" + name }

// ServiceKey returns the state key for a service on an instance.
func ServiceKey(kind, target string) string { return "service/" + target + "/" + kind }

// State is the append-only, insertion-ordered record of resources created
// during one run. It is not safe for concurrent use.
type State struct {
	records []ResourceRecord
	index   map[string]int
}

// NewState creates an empty deployment state.
func NewState() *State {
	return &State{index: make(map[string]int)}
}

// Append adds a record. Keys are unique within a run.
func (s *State) Append(rec ResourceRecord) error {
	if rec.Key == "" {
		return fmt.Errorf("resource record for %q has no key", rec.Name)
	}
	if _, exists := s.index[rec.Key]; exists {
		return fmt.Errorf("resource %q already recorded", rec.Key)
	}
	if rec.Pending {
		return fmt.Errorf("resource %q is still pending", rec.Key)
	}
	s.index[rec.Key] = len(s.records)
	s.records = append(s.records, rec)
	return nil
}

// Get returns the record with the given key.
func (s *State) Get(key string) (ResourceRecord, bool) {
	i, ok := s.index[key]
	if !ok {
		return ResourceRecord{}, false
	}
	return s.records[i], true
}

// Instance returns the instance record for the named instance.
func (s *State) Instance(name string) (ResourceRecord, bool) {
	return s.Get(InstanceKey(name))
}

// Records returns a copy of all records in creation order.
func (s *State) Records() []ResourceRecord {
	return slices.Clone(s.records)
}

// Reverse returns a copy of all records in rollback order.
func (s *State) Reverse() []ResourceRecord {
	out := slices.Clone(s.records)
	slices.Reverse(out)
	return out
}

// Len returns the number of records.
func (s *State) Len() int { return len(s.records) }

// Count returns the number of records of the given kind.
func (s *State) Count(kind ResourceKind) int {
	n := 0
	for _, r := range s.records {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// StateFromRecords rebuilds a state from journaled records. A later record
// replaces an earlier one with the same key in place, so a pending instance
// that completed keeps its original position. Records still pending at the
// end are returned separately.
func StateFromRecords(records []ResourceRecord) (*State, []ResourceRecord) {
	var (
		ordered []ResourceRecord
		pos     = make(map[string]int)
	)
	for _, r := range records {
		if i, ok := pos[r.Key]; ok {
			ordered[i] = r
			continue
		}
		pos[r.Key] = len(ordered)
		ordered = append(ordered, r)
	}

	state := NewState()
	var pending []ResourceRecord
	for _, r := range ordered {
		if r.Pending {
			pending = append(pending, r)
			continue
		}
		// Keys are unique after deduplication.
		_ = state.Append(r)
	}
	return state, pending
}

// RunStatus is the lifecycle status of a journaled run.
type RunStatus string

// Run statuses.
const (
	RunRunning            RunStatus = "running"
	RunSucceeded          RunStatus = "succeeded"
	RunFailed             RunStatus = "failed"
	RunRolledBack         RunStatus = "rolled_back"
	RunRollbackIncomplete RunStatus = "rollback_incomplete"
)

// RunInfo describes one journaled run.
type RunInfo struct {
	ID          string    `json:"id"`
	Environment string    `json:"environment"`
	Status      RunStatus `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}
