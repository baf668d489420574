package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/tradefleet/internal/provisioning"
)

// RecoverRun rolls back a journaled run, typically one interrupted in
// another process. The journaled records are folded into a state and
// rolled back with the same rules as Orchestrator.Rollback. Only
// deps.Journal and deps.Provider are used; WithObserver is the only
// option that applies.
func RecoverRun(ctx context.Context, runID string, deps Dependencies, opts ...Option) (*RollbackReport, error) {
	if deps.Journal == nil {
		return nil, errors.New("recovering a run requires a journal")
	}
	if deps.Provider == nil {
		return nil, errors.New("recovering a run requires a provider")
	}

	o := &Orchestrator{observer: provisioning.NewSlogObserver(nil)}
	for _, opt := range opts {
		opt(o)
	}
	observer := o.observer.WithFields(map[string]string{"run": runID})

	records, err := deps.Journal.Records(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	state, pending := provisioning.StateFromRecords(records)

	r := &rollbacker{provider: deps.Provider, observer: observer, metrics: deps.Metrics}
	report := r.run(ctx, runID, state.Reverse(), pending)

	if err := deps.Journal.Finish(runID, report.Status()); err != nil {
		return report, fmt.Errorf("failed to mark run %s as %s: %w", runID, report.Status(), err)
	}
	return report, nil
}
