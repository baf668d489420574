package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/provisioning"
	tftest "github.com/imamik/tradefleet/internal/testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockArchive struct {
	mock.Mock
}

func (m *mockArchive) Store(ctx context.Context, environment, runID string, report []byte) (string, error) {
	args := m.Called(ctx, environment, runID, report)
	return args.String(0), args.Error(1)
}

// failingJournal refuses to begin runs.
type failingJournal struct {
	*tftest.FakeJournal
}

func (failingJournal) Begin(provisioning.RunInfo) error { return errors.New("journal locked") }

func testDeps(fakes *tftest.Fakes) Dependencies {
	return Dependencies{
		Provider: fakes.Provider,
		Security: fakes.Security,
		Services: fakes.Registry,
		Journal:  fakes.Journal,
	}
}

func testOrchestrator(env *config.Environment, deps Dependencies, fakes *tftest.Fakes, opts ...Option) *Orchestrator {
	clock := tftest.FixedTime
	base := []Option{
		WithRunID("run-1"),
		WithObserver(fakes.Observer),
		WithTimeouts(tftest.FastTimeouts()),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	}
	return New(env, deps, append(base, opts...)...)
}

func TestNew_GeneratesRunID(t *testing.T) {
	t.Parallel()
	env := tftest.NewEnvironmentBuilder("prod").Build()

	a := New(env, Dependencies{})
	b := New(env, Dependencies{})

	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())
	assert.Equal(t, 0, a.State().Len())
	assert.Nil(t, a.Summary())
	assert.Nil(t, a.Plan())
}

func TestPhases_Order(t *testing.T) {
	t.Parallel()
	var names []string
	for _, p := range Phases() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"infrastructure", "security", "services"}, names)
}

func TestBuildPlan(t *testing.T) {
	t.Parallel()
	env := tftest.NewEnvironmentBuilder("prod").
		WithStableInstance("node-a").
		WithSecurity(config.SecurityPolicy{
			Targets:         []string{"node-a"},
			SSH:             config.SSHConfig{Port: 2222, User: "ops"},
			VPNNetwork:      "10.8.0.0/24",
			FirewallProfile: config.FirewallProfileMonitoring,
		}).
		WithService(config.ServiceKindMonitor, "node-a").
		WithService("order-router", "node-a").
		Build()

	plan := BuildPlan(env, tftest.NewFakeRegistry(config.ServiceKindMonitor), tftest.FastTimeouts())

	actions := make([]string, len(plan.Steps))
	for i, s := range plan.Steps {
		actions[i] = s.Phase + " " + s.Action + " " + s.Resource
	}
	assert.Equal(t, []string{
		"infrastructure create instance/node-a",
		"infrastructure wait-ready instance/node-a",
		"infrastructure allocate-stable-address instance/node-a",
		"infrastructure attach-stable-address instance/node-a",
		"security harden security/node-a",
		"security harden security/node-a",
		"security harden security/node-a",
		"security harden security/node-a",
		"security harden security/node-a",
		"services deploy service/node-a/monitor",
		"services skip service/node-a/order-router",
	}, actions)

	assert.Equal(t, "prod-node-a (cx22, ubuntu-24.04) in fsn1", plan.Steps[0].Detail)
	assert.Equal(t, "prod-node-a-ipv4", plan.Steps[2].Detail)
	assert.Equal(t, "connect as root on port 22 (on failure: warn)", plan.Steps[4].Detail)
	assert.Equal(t, "firewall profile monitoring from 10.8.0.0/24", plan.Steps[6].Detail)
	assert.Equal(t, "ssh-lockdown to ops on port 2222", plan.Steps[7].Detail)
	assert.Equal(t, "tradefleet-monitor.service to node-a", plan.Steps[9].Detail)
	assert.Equal(t, []string{"instance/node-a", "security/node-a", "service/node-a/monitor"}, plan.Resources())

	data, err := plan.JSON()
	require.NoError(t, err)
	var decoded Plan
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *plan, decoded)
}

func TestBuildPlan_WithoutRegistry(t *testing.T) {
	t.Parallel()
	env := tftest.NewEnvironmentBuilder("prod").
		WithInstance("node-a").
		WithService(config.ServiceKindDataCollector, "node-a").
		WithService("order-router", "node-a").
		Build()

	plan := BuildPlan(env, nil, nil)

	assert.Equal(t, []string{"instance/node-a", "service/node-a/data-collector"}, plan.Resources())
	assert.Equal(t, "timeout 5m0s", plan.Steps[1].Detail)
}

func TestDeploy_Summary(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Security.StepErr["firewall"] = errors.New("ufw missing")
	env := tftest.NewEnvironmentBuilder("prod").
		WithStableInstance("node-a").
		WithSecurity(config.SecurityPolicy{Targets: []string{"node-a"}}).
		WithService(config.ServiceKindMonitor, "node-a").
		Build()
	orch := testOrchestrator(env, testDeps(fakes), fakes)

	require.True(t, orch.Deploy(context.Background(), false))

	s := orch.Summary()
	require.NotNil(t, s)
	assert.Equal(t, "run-1", s.RunID)
	assert.True(t, s.Success)
	assert.Empty(t, s.Error)
	assert.Equal(t, map[provisioning.ResourceKind]int{
		provisioning.KindInstance: 1,
		provisioning.KindSecurity: 1,
		provisioning.KindService:  1,
	}, s.Counts)
	assert.Equal(t, []InstanceSummary{{
		Name: "node-a", ID: "1", Region: "fsn1", Address: "203.0.113.1", StableAddress: "198.51.100.1",
	}}, s.Instances)
	require.Len(t, s.Hardening, 1)
	assert.Equal(t, []string{"firewall"}, s.Hardening[0].Failed)
	assert.Equal(t, []ServiceSummary{{Kind: "monitor", Instance: "node-a", Address: "198.51.100.1"}}, s.Services)
	require.Len(t, s.Phases, 3)
	assert.Equal(t, "services", s.Phases[2].Name)
	assert.Positive(t, s.Duration())

	data, err := s.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-1"`)
	assert.NotContains(t, string(data), `"rollback"`)
}

func TestDeploy_FailureSummary(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Registry.Factory(config.ServiceKindMonitor).DeployErr = errors.New("docker pull failed")
	env := tftest.NewEnvironmentBuilder("prod").
		WithInstance("node-a").
		WithService(config.ServiceKindMonitor, "node-a").
		Build()
	orch := testOrchestrator(env, testDeps(fakes), fakes)

	require.False(t, orch.Deploy(context.Background(), false))

	s := orch.Summary()
	assert.False(t, s.Success)
	assert.Contains(t, s.Error, "docker pull failed")
	require.Len(t, s.Phases, 3)
	assert.NotEmpty(t, s.Phases[2].Error)
	assert.Empty(t, s.Phases[0].Error)
}

func TestDeploy_DeciderReceivesFailure(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Provider.NotReady["prod-node-b"] = true
	env := tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").WithInstance("node-b").Build()

	var got Failure
	orch := testOrchestrator(env, testDeps(fakes), fakes, WithRollbackDecider(func(_ context.Context, f Failure) bool {
		got = f
		return false
	}))

	require.False(t, orch.Deploy(context.Background(), false))

	assert.Equal(t, "run-1", got.RunID)
	assert.ErrorIs(t, got.Err, provisioning.ErrReadinessTimeout)
	assert.False(t, got.Interrupted)
	assert.Equal(t, 1, got.Recorded)
	assert.Equal(t, 1, got.Orphaned)
}

func TestDeploy_PanicBecomesFailure(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Registry.Factory(config.ServiceKindMonitor).OnDeploy = func([]string) {
		panic("nil settings")
	}
	env := tftest.NewEnvironmentBuilder("prod").
		WithInstance("node-a").
		WithService(config.ServiceKindMonitor, "node-a").
		Build()
	orch := testOrchestrator(env, testDeps(fakes), fakes, WithRollbackDecider(func(context.Context, Failure) bool { return true }))

	require.False(t, orch.Deploy(context.Background(), false))

	require.Error(t, orch.Err())
	assert.Contains(t, orch.Err().Error(), "unexpected error during deployment: nil settings")
	assert.Equal(t, []string{"1"}, fakes.Provider.CallsOf("destroy"))
}

func TestDeploy_JournalBeginFailure(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	deps := testDeps(fakes)
	deps.Journal = failingJournal{fakes.Journal}
	env := tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").Build()
	orch := testOrchestrator(env, deps, fakes)

	require.False(t, orch.Deploy(context.Background(), false))

	assert.Contains(t, orch.Err().Error(), "journal locked")
	assert.Empty(t, fakes.Provider.Calls())
	require.NotNil(t, orch.Summary())
	assert.False(t, orch.Summary().Success)
}

func TestDeploy_ArchivesReport(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	archive := &mockArchive{}
	archive.On("Store", mock.Anything, "prod", "run-1", mock.MatchedBy(func(data []byte) bool {
		var s Summary
		return json.Unmarshal(data, &s) == nil && s.RunID == "run-1" && s.Success
	})).Return("prod/runs/run-1.json", nil)
	deps := testDeps(fakes)
	deps.Archive = archive
	orch := testOrchestrator(env1(), deps, fakes)

	require.True(t, orch.Deploy(context.Background(), false))

	archive.AssertExpectations(t)
	assert.Equal(t, "prod/runs/run-1.json", orch.Summary().ArchiveKey)
}

func TestDeploy_ArchiveFailureOnlyWarns(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	archive := &mockArchive{}
	archive.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("access denied"))
	deps := testDeps(fakes)
	deps.Archive = archive
	orch := testOrchestrator(env1(), deps, fakes)

	require.True(t, orch.Deploy(context.Background(), false))

	assert.Empty(t, orch.Summary().ArchiveKey)
	require.NotEmpty(t, fakes.Observer.Warnings())
	assert.Contains(t, fakes.Observer.Warnings()[0], "access denied")
}

func TestDeploy_Metrics(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Provider.CreateErr["prod-node-b"] = errors.New("capacity")
	deps := testDeps(fakes)
	deps.Metrics = provisioning.NewMetrics("prod")
	env := tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").WithInstance("node-b").Build()
	orch := testOrchestrator(env, deps, fakes, WithRollbackDecider(func(context.Context, Failure) bool { return true }))

	require.False(t, orch.Deploy(context.Background(), false))

	registry := deps.Metrics.Registry()
	count, err := testutil.GatherAndCount(registry,
		"tradefleet_deploy_runs_total",
		"tradefleet_deploy_resources_recorded_total",
		"tradefleet_rollback_resources_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRollback_WithoutDeploy(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	orch := testOrchestrator(env1(), testDeps(fakes), fakes)

	report := orch.Rollback(context.Background())

	assert.True(t, report.Complete())
	assert.Empty(t, report.Destroyed)
	assert.Empty(t, fakes.Provider.Calls())
}

func TestRollback_ReleaseFailureStillDestroys(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Provider.ReleaseErr["prod-node-a-ipv4"] = errors.New("locked")
	env := tftest.NewEnvironmentBuilder("prod").WithStableInstance("node-a").Build()
	orch := testOrchestrator(env, testDeps(fakes), fakes)
	require.True(t, orch.Deploy(context.Background(), false))

	report := orch.Rollback(context.Background())

	assert.False(t, report.Complete())
	assert.Equal(t, provisioning.RunRollbackIncomplete, report.Status())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "release-stable-address", report.Failures[0].Action)
	assert.Equal(t, []string{"instance/node-a"}, report.Destroyed)
	assert.Empty(t, report.Released)
	assert.Equal(t, provisioning.RunRollbackIncomplete, fakes.Journal.Status("run-1"))
}

func env1() *config.Environment {
	return tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").Build()
}
