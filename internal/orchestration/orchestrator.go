package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/provisioning/infrastructure"
	"github.com/imamik/tradefleet/internal/provisioning/security"
	"github.com/imamik/tradefleet/internal/provisioning/workloads"

	"github.com/google/uuid"
)

// ReportArchive stores the JSON summary of a run.
// Implemented by internal/platform/s3.Archive.
type ReportArchive interface {
	Store(ctx context.Context, environment, runID string, report []byte) (string, error)
}

// Dependencies are the collaborators of a run. Journal, Archive and
// Metrics are optional.
type Dependencies struct {
	Provider provisioning.InfrastructureProvider
	Security provisioning.SecurityConfigurerFactory
	Services provisioning.ServiceRegistry
	Journal  provisioning.Journal
	Archive  ReportArchive
	Metrics  *provisioning.Metrics
}

// Failure describes a failed run to the rollback decider.
type Failure struct {
	RunID       string
	Err         error
	Interrupted bool
	Recorded    int // Records in the run state
	Orphaned    int // Journaled instances that never completed
}

// RollbackDecider decides whether a failed run is rolled back.
type RollbackDecider func(ctx context.Context, failure Failure) bool

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver sets the observer receiving run events.
func WithObserver(observer provisioning.Observer) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithTimeouts overrides the timeouts loaded from the environment.
func WithTimeouts(timeouts *config.Timeouts) Option {
	return func(o *Orchestrator) {
		if timeouts != nil {
			o.timeouts = timeouts
		}
	}
}

// WithRunID sets the run ID instead of a generated one.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.runID = id
		}
	}
}

// WithRollbackDecider sets the callback asked after a failed run.
// Without one, failed runs are never rolled back automatically.
func WithRollbackDecider(decider RollbackDecider) Option {
	return func(o *Orchestrator) {
		o.decider = decider
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator runs one deployment. It is single-use and not safe for
// concurrent use.
type Orchestrator struct {
	env      *config.Environment
	deps     Dependencies
	observer provisioning.Observer
	timeouts *config.Timeouts
	decider  RollbackDecider
	now      func() time.Time
	runID    string

	started  bool
	pctx     *provisioning.Context
	startAt  time.Time
	timings  []provisioning.PhaseTiming
	err      error
	plan     *Plan
	summary  *Summary
	rollback *RollbackReport
}

// New creates an orchestrator for a validated environment.
func New(env *config.Environment, deps Dependencies, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		env:      env,
		deps:     deps,
		observer: provisioning.NewSlogObserver(nil),
		timeouts: config.LoadTimeouts(),
		now:      time.Now,
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.observer = o.observer.WithFields(map[string]string{
		"run":         o.runID,
		"environment": env.Name,
	})
	return o
}

// RunID returns the ID of this run.
func (o *Orchestrator) RunID() string { return o.runID }

// Err returns the error that failed the run, if any.
func (o *Orchestrator) Err() error { return o.err }

// Plan returns the plan built by a dry run, or nil.
func (o *Orchestrator) Plan() *Plan { return o.plan }

// Summary returns the report of a real run, or nil before one finished.
func (o *Orchestrator) Summary() *Summary { return o.summary }

// State returns the run state. It is empty before Deploy and must not be
// modified by the caller.
func (o *Orchestrator) State() *provisioning.State {
	if o.pctx == nil {
		return provisioning.NewState()
	}
	return o.pctx.State
}

// Phases returns the phases of a real run, in execution order.
func Phases() []provisioning.Phase {
	return []provisioning.Phase{
		infrastructure.NewProvisioner(),
		security.NewProvisioner(),
		workloads.NewProvisioner(),
	}
}

// Deploy runs the deployment and reports whether every phase completed.
// A dry run builds a Plan without calling any collaborator and always
// succeeds. A failed real run keeps its error (see Err), asks the rollback
// decider when anything was created, and rolls back if it agrees.
func (o *Orchestrator) Deploy(ctx context.Context, dryRun bool) bool {
	if o.started {
		o.observer.Warnf("Deploy called twice on run %s", o.runID)
		o.err = provisioning.ErrAlreadyDeployed
		return false
	}
	o.started = true

	if dryRun {
		o.plan = BuildPlan(o.env, o.deps.Services, o.timeouts)
		o.observer.Printf("Dry run for %s: %d planned steps, nothing was changed", o.env.Name, len(o.plan.Steps))
		o.deps.Metrics.RunFinished("dry_run")
		return true
	}
	return o.run(ctx)
}

func (o *Orchestrator) run(ctx context.Context) bool {
	o.startAt = o.now().UTC()
	o.pctx = o.newContext(ctx)

	if o.deps.Journal != nil {
		err := o.deps.Journal.Begin(provisioning.RunInfo{
			ID:          o.runID,
			Environment: o.env.Name,
			Status:      provisioning.RunRunning,
			StartedAt:   o.startAt,
		})
		if err != nil {
			o.err = fmt.Errorf("failed to start run journal: %w", err)
			o.observer.Warnf("Deployment not started: %v", o.err)
			o.finish(ctx, false)
			return false
		}
	}

	o.timings, o.err = o.runPhases()
	if o.err == nil {
		o.finishJournal(provisioning.RunSucceeded)
		o.finish(ctx, true)
		return true
	}

	o.observer.Warnf("Deployment failed: %v", o.err)
	o.finishJournal(provisioning.RunFailed)
	o.offerRollback(ctx)
	o.finish(ctx, false)
	return false
}

// runPhases runs the phases and turns a panic into a run failure so that
// everything recorded so far is still eligible for rollback.
func (o *Orchestrator) runPhases() (timings []provisioning.PhaseTiming, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error during deployment: %v", r)
		}
	}()
	return provisioning.RunPhases(o.pctx, Phases())
}

func (o *Orchestrator) newContext(ctx context.Context) *provisioning.Context {
	pctx := provisioning.NewContext(ctx, o.env, o.runID)
	pctx.Provider = o.deps.Provider
	pctx.Security = o.deps.Security
	pctx.Services = o.deps.Services
	pctx.Journal = o.deps.Journal
	pctx.Metrics = o.deps.Metrics
	pctx.Observer = o.observer
	pctx.Timeouts = o.timeouts
	pctx.Now = o.now
	return pctx
}

// offerRollback asks the decider and runs the rollback on a context that
// outlives the cancellation that may have ended the run.
func (o *Orchestrator) offerRollback(ctx context.Context) {
	orphans := o.orphans()
	failure := Failure{
		RunID:       o.runID,
		Err:         o.err,
		Interrupted: errors.Is(o.err, provisioning.ErrInterrupted) || errors.Is(o.err, context.Canceled),
		Recorded:    o.pctx.State.Len(),
		Orphaned:    len(orphans),
	}
	if failure.Recorded == 0 && failure.Orphaned == 0 {
		o.observer.Printf("Nothing was created, no rollback needed")
		return
	}
	o.observer.Printf("%d resources recorded before the failure", failure.Recorded)
	if o.decider == nil || !o.decider(ctx, failure) {
		o.observer.Printf("Rollback declined, resources of run %s are kept", o.runID)
		return
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeouts.Rollback)
	defer cancel()
	o.Rollback(rctx)
}

// Rollback destroys the run's instances in reverse creation order and
// reports what happened to every record. Instances the journal saw created
// but that never completed are destroyed first and reported as orphans.
// Rollback is best-effort: a failure is reported and the next record is
// still processed.
func (o *Orchestrator) Rollback(ctx context.Context) *RollbackReport {
	r := &rollbacker{
		provider: o.deps.Provider,
		observer: o.observer,
		metrics:  o.deps.Metrics,
	}
	report := r.run(ctx, o.runID, o.State().Reverse(), o.orphans())
	if o.pctx != nil {
		o.finishJournal(report.Status())
	}
	o.rollback = report
	if o.summary != nil {
		o.summary.Rollback = report
	}
	return report
}

// orphans returns journaled instances of this run that never completed.
func (o *Orchestrator) orphans() []provisioning.ResourceRecord {
	if o.deps.Journal == nil || o.pctx == nil {
		return nil
	}
	records, err := o.deps.Journal.Records(o.runID)
	if err != nil {
		o.observer.Warnf("failed to read journal of run %s: %v", o.runID, err)
		return nil
	}
	_, pending := provisioning.StateFromRecords(records)
	var out []provisioning.ResourceRecord
	for _, rec := range pending {
		if _, ok := o.pctx.State.Get(rec.Key); !ok {
			out = append(out, rec)
		}
	}
	return out
}

func (o *Orchestrator) finishJournal(status provisioning.RunStatus) {
	if o.deps.Journal == nil {
		return
	}
	if err := o.deps.Journal.Finish(o.runID, status); err != nil {
		o.observer.Warnf("failed to mark run %s as %s: %v", o.runID, status, err)
	}
}

func (o *Orchestrator) finish(ctx context.Context, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	o.deps.Metrics.RunFinished(result)

	o.summary = o.buildSummary(success)
	o.archive(ctx)
}

// archive uploads the summary. Failures only warn.
func (o *Orchestrator) archive(ctx context.Context) {
	if o.deps.Archive == nil {
		return
	}
	data, err := o.summary.JSON()
	if err != nil {
		o.observer.Warnf("failed to encode run report: %v", err)
		return
	}
	key, err := o.deps.Archive.Store(context.WithoutCancel(ctx), o.env.Name, o.runID, data)
	if err != nil {
		o.observer.Warnf("failed to archive run report: %v", err)
		return
	}
	o.summary.ArchiveKey = key
	o.observer.Printf("Run report archived as %s", key)
}
