package testing

import (
	"context"
	"testing"
	"time"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/provisioning"
)

// FixedTime is the timestamp test contexts stamp on records.
var FixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// Fakes bundles the stateful collaborators of a run.
type Fakes struct {
	Provider *FakeProvider
	Security *FakeSecurityFactory
	Registry *FakeRegistry
	Journal  *FakeJournal
	Observer *RecordingObserver
}

// NewFakes creates fakes with a registry knowing every built-in service kind.
func NewFakes() *Fakes {
	return &Fakes{
		Provider: NewFakeProvider(),
		Security: NewFakeSecurityFactory(),
		Registry: NewFakeRegistry(config.KnownServiceKinds...),
		Journal:  NewFakeJournal(),
		Observer: NewRecordingObserver(),
	}
}

// Context creates a provisioning context wired to the fakes, with a begun
// journal run "run-1", short timeouts and a fixed clock.
func (f *Fakes) Context(t *testing.T, env *config.Environment) *provisioning.Context {
	t.Helper()
	ctx := provisioning.NewContext(context.Background(), env, "run-1")
	ctx.Provider = f.Provider
	ctx.Security = f.Security
	ctx.Services = f.Registry
	ctx.Journal = f.Journal
	ctx.Observer = f.Observer
	ctx.Timeouts = FastTimeouts()
	ctx.Now = func() time.Time { return FixedTime }
	if err := f.Journal.Begin(provisioning.RunInfo{ID: "run-1", Environment: env.Name, Status: provisioning.RunRunning}); err != nil {
		t.Fatalf("failed to begin journal run: %v", err)
	}
	return ctx
}

// FastTimeouts returns timeouts suitable for tests.
func FastTimeouts() *config.Timeouts {
	return &config.Timeouts{
		ServerCreate:      time.Second,
		InstanceReady:     time.Second,
		ReadyPollInterval: time.Millisecond,
		Delete:            time.Second,
		SSHConnect:        time.Second,
		Rollback:          5 * time.Second,
		RetryMaxAttempts:  1,
		RetryInitialDelay: time.Millisecond,
	}
}

// Keys returns the keys of records in order.
func Keys(records []provisioning.ResourceRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key
	}
	return out
}
