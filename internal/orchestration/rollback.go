package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/tradefleet/internal/provisioning"
)

const rollbackPhase = "rollback"

// Rollback outcomes, also used as metric labels.
const (
	outcomeDestroyed = "destroyed"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

// RollbackFailure is a record that could not be rolled back.
type RollbackFailure struct {
	Key    string `json:"key"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

// RollbackReport lists what a rollback did with every record, by key.
type RollbackReport struct {
	RunID     string            `json:"run_id"`
	Destroyed []string          `json:"destroyed"`
	Released  []string          `json:"released,omitempty"` // Stable address names
	Kept      []string          `json:"kept,omitempty"`     // Stable addresses that existed before the run
	Skipped   []string          `json:"skipped,omitempty"`
	Orphans   []string          `json:"orphans,omitempty"` // Pending instances destroyed
	Failures  []RollbackFailure `json:"failures,omitempty"`
}

// Complete reports whether every record was rolled back or skipped.
func (r *RollbackReport) Complete() bool {
	return len(r.Failures) == 0
}

// Status returns the journal status for the report.
func (r *RollbackReport) Status() provisioning.RunStatus {
	if r.Complete() {
		return provisioning.RunRolledBack
	}
	return provisioning.RunRollbackIncomplete
}

type rollbacker struct {
	provider provisioning.InfrastructureProvider
	observer provisioning.Observer
	metrics  *provisioning.Metrics
	report   *RollbackReport
}

// run processes orphans first, since they were created last, then the
// recorded resources in the given (already reversed) order.
func (r *rollbacker) run(ctx context.Context, runID string, reversed, orphans []provisioning.ResourceRecord) *RollbackReport {
	r.report = &RollbackReport{RunID: runID, Destroyed: []string{}}
	r.observer.Printf("Rolling back run %s: %d records, %d orphaned instances", runID, len(reversed), len(orphans))

	for _, rec := range orphans {
		if rec.InstanceID == "" {
			continue
		}
		if r.destroy(ctx, rec) {
			r.report.Orphans = append(r.report.Orphans, rec.Key)
		}
	}

	for _, rec := range reversed {
		switch rec.Kind {
		case provisioning.KindInstance:
			r.rollbackInstance(ctx, rec)
		case provisioning.KindSecurity:
			r.skip(rec, "hardening is not reversed")
		case provisioning.KindService:
			r.skip(rec, "installed services are not removed")
		default:
			r.skip(rec, fmt.Sprintf("unknown resource kind %q", rec.Kind))
		}
	}

	if r.report.Complete() {
		r.observer.Printf("Rollback of run %s complete", runID)
	} else {
		r.observer.Warnf("Rollback of run %s incomplete: %d failures", runID, len(r.report.Failures))
	}
	return r.report
}

// rollbackInstance releases the instance's stable address if the run
// created it, then destroys the instance. A reused address is kept.
func (r *rollbacker) rollbackInstance(ctx context.Context, rec provisioning.ResourceRecord) {
	switch {
	case rec.StableAddressName == "":
	case !rec.StableAddressOwned:
		r.observer.Printf("Keeping stable address %s, it existed before run %s", rec.StableAddressName, r.report.RunID)
		r.report.Kept = append(r.report.Kept, rec.StableAddressName)
	default:
		err := r.provider.ReleaseStableAddress(ctx, rec.StableAddressName)
		if err != nil && !errors.Is(err, provisioning.ErrResourceNotFound) {
			r.fail(rec, "release-stable-address", err)
		} else {
			r.report.Released = append(r.report.Released, rec.StableAddressName)
		}
	}
	if r.destroy(ctx, rec) {
		r.report.Destroyed = append(r.report.Destroyed, rec.Key)
	}
}

// destroy deletes an instance. An instance that is already gone counts
// as destroyed.
func (r *rollbacker) destroy(ctx context.Context, rec provisioning.ResourceRecord) bool {
	provisioning.LogResourceDeleting(r.observer, rollbackPhase, rec.Kind, rec.Key)
	err := r.provider.Destroy(ctx, rec.InstanceID)
	if err != nil && !errors.Is(err, provisioning.ErrResourceNotFound) {
		r.fail(rec, "destroy", err)
		return false
	}
	provisioning.LogResourceDeleted(r.observer, rollbackPhase, rec.Kind, rec.Key)
	r.metrics.RollbackOutcome(rec.Kind, outcomeDestroyed)
	return true
}

func (r *rollbacker) skip(rec provisioning.ResourceRecord, reason string) {
	provisioning.LogResourceSkipped(r.observer, rollbackPhase, rec.Key, reason)
	r.report.Skipped = append(r.report.Skipped, rec.Key)
	r.metrics.RollbackOutcome(rec.Kind, outcomeSkipped)
}

func (r *rollbacker) fail(rec provisioning.ResourceRecord, action string, err error) {
	r.observer.Event(provisioning.Event{
		Type:     provisioning.EventResourceFailed,
		Phase:    rollbackPhase,
		Resource: rec.Key,
		Message:  fmt.Sprintf("%s failed: %v", action, err),
		Fields:   map[string]string{"action": action},
	})
	r.report.Failures = append(r.report.Failures, RollbackFailure{Key: rec.Key, Action: action, Error: err.Error()})
	r.metrics.RollbackOutcome(rec.Kind, outcomeFailed)
}
