package infrastructure

import (
	"errors"
	"testing"

	"github.com/imamik/tradefleet/internal/provisioning"
	tftest "github.com/imamik/tradefleet/internal/testing"
	"github.com/imamik/tradefleet/internal/util/labels"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProvisioner_Name(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "infrastructure", NewProvisioner().Name())
}

func TestProvisioner_CreatesInstancesInOrder(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	env := tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").WithInstance("node-b").Build()
	ctx := fakes.Context(t, env)

	require.NoError(t, NewProvisioner().Provision(ctx))

	assert.Equal(t, []string{"instance/node-a", "instance/node-b"}, tftest.Keys(ctx.State.Records()))
	assert.Equal(t, []string{"prod-node-a", "prod-node-b"}, fakes.Provider.CallsOf("create"))

	rec, ok := ctx.State.Instance("node-a")
	require.True(t, ok)
	assert.Equal(t, "1", rec.InstanceID)
	assert.Equal(t, "203.0.113.1", rec.Address)
	assert.Equal(t, "fsn1", rec.Region)
	assert.Equal(t, tftest.FixedTime, rec.CreatedAt)
	assert.Len(t, fakes.Observer.Events(provisioning.EventResourceCreated), 2)
}

func TestProvisioner_JournalsPendingBeforeCompletion(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	env := tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").Build()
	ctx := fakes.Context(t, env)

	require.NoError(t, NewProvisioner().Provision(ctx))

	records, err := fakes.Journal.Records("run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Pending)
	assert.False(t, records[1].Pending)
	assert.Equal(t, records[0].Key, records[1].Key)
}

func TestProvisioner_CreateFailureStopsPhase(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Provider.CreateErr["prod-node-b"] = errors.New("quota exceeded")
	env := tftest.NewEnvironmentBuilder("prod").
		WithInstance("node-a").WithInstance("node-b").WithInstance("node-c").Build()
	ctx := fakes.Context(t, env)

	err := NewProvisioner().Provision(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create instance node-b")
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, []string{"instance/node-a"}, tftest.Keys(ctx.State.Records()))
	assert.Equal(t, []string{"prod-node-a", "prod-node-b"}, fakes.Provider.CallsOf("create"))
}

func TestProvisioner_LeakedInstanceIsTrackedNotRecorded(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Provider.CreateErr["prod-node-a"] = errors.New("action failed")
	fakes.Provider.CreateLeaks = true
	env := tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").Build()
	ctx := fakes.Context(t, env)

	require.Error(t, NewProvisioner().Provision(ctx))

	assert.Equal(t, 0, ctx.State.Len())
	records, err := fakes.Journal.Records("run-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Pending)
	assert.Equal(t, "1", records[0].InstanceID)
}

func TestProvisioner_ReadinessTimeout(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Provider.NotReady["prod-node-a"] = true
	env := tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").Build()
	ctx := fakes.Context(t, env)

	err := NewProvisioner().Provision(ctx)

	require.ErrorIs(t, err, provisioning.ErrReadinessTimeout)
	assert.Equal(t, 0, ctx.State.Len())
	assert.Equal(t, []string{"1"}, fakes.Provider.Live())
}

func TestProvisioner_FetchesDeferredAddress(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Provider.DeferAddress = true
	env := tftest.NewEnvironmentBuilder("prod").WithInstance("node-a").Build()
	ctx := fakes.Context(t, env)

	require.NoError(t, NewProvisioner().Provision(ctx))

	rec, _ := ctx.State.Instance("node-a")
	assert.Equal(t, "203.0.113.1", rec.Address)
	assert.Equal(t, []string{"1"}, fakes.Provider.CallsOf("address"))
}

func TestProvisioner_StableAddress(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	env := tftest.NewEnvironmentBuilder("prod").WithStableInstance("node-a").Build()
	ctx := fakes.Context(t, env)

	require.NoError(t, NewProvisioner().Provision(ctx))

	rec, _ := ctx.State.Instance("node-a")
	assert.Equal(t, "prod-node-a-ipv4", rec.StableAddressName)
	assert.Equal(t, "198.51.100.1", rec.StableAddress)
	assert.True(t, rec.StableAddressOwned)
	assert.Equal(t, []string{"prod-node-a-ipv4"}, fakes.Provider.CallsOf("attach"))

	address, err := ctx.ResolveAddress("node-a")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1", address)
}

func TestProvisioner_AttachFailureReleasesAddress(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Provider.AttachErr["prod-node-a-ipv4"] = errors.New("locked")
	env := tftest.NewEnvironmentBuilder("prod").WithStableInstance("node-a").Build()
	ctx := fakes.Context(t, env)

	err := NewProvisioner().Provision(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to attach stable address prod-node-a-ipv4")
	assert.Empty(t, fakes.Provider.StableAddresses())
	assert.Equal(t, 0, ctx.State.Len())
}

func TestProvisioner_ReusesExistingStableAddress(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	existing := fakes.Provider.SeedStableAddress("prod-node-a-ipv4")
	env := tftest.NewEnvironmentBuilder("prod").WithStableInstance("node-a").Build()
	ctx := fakes.Context(t, env)

	require.NoError(t, NewProvisioner().Provision(ctx))

	rec, _ := ctx.State.Instance("node-a")
	assert.Equal(t, existing.Address, rec.StableAddress)
	assert.False(t, rec.StableAddressOwned)
}

func TestProvisioner_AttachFailureKeepsExistingAddress(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	fakes.Provider.SeedStableAddress("prod-node-a-ipv4")
	fakes.Provider.AttachErr["prod-node-a-ipv4"] = errors.New("locked")
	env := tftest.NewEnvironmentBuilder("prod").WithStableInstance("node-a").Build()
	ctx := fakes.Context(t, env)

	err := NewProvisioner().Provision(ctx)

	require.Error(t, err)
	assert.Empty(t, fakes.Provider.CallsOf("release"))
	assert.Equal(t, []string{"prod-node-a-ipv4"}, fakes.Provider.StableAddresses())
}

func TestProvisioner_RequestLabels(t *testing.T) {
	t.Parallel()
	provider := &tftest.MockProvider{}
	env := tftest.NewEnvironmentBuilder("prod").
		WithTags(map[string]string{"team": "quant"}).
		WithInstance("node-a").Build()
	ctx := tftest.NewFakes().Context(t, env)
	ctx.Provider = provider

	provider.On("Create", mock.Anything, mock.MatchedBy(func(req provisioning.InstanceRequest) bool {
		return req.Name == "prod-node-a" &&
			req.Image == "ubuntu-24.04" &&
			req.Size == "cx22" &&
			req.Location == "fsn1" &&
			req.Labels[labels.KeyEnvironment] == "prod" &&
			req.Labels[labels.KeyInstance] == "node-a" &&
			req.Labels[labels.KeyRun] == "run-1" &&
			req.Labels["team"] == "quant"
	})).Return(&provisioning.Instance{ID: "9", Name: "prod-node-a", Address: "203.0.113.9"}, nil)
	provider.On("WaitUntilReady", mock.Anything, "9", ctx.Timeouts.InstanceReady).Return(true, nil)

	require.NoError(t, NewProvisioner().Provision(ctx))
	provider.AssertExpectations(t)
}

func TestProvisioner_EmptyEnvironment(t *testing.T) {
	t.Parallel()
	fakes := tftest.NewFakes()
	ctx := fakes.Context(t, tftest.NewEnvironmentBuilder("prod").Build())

	require.NoError(t, NewProvisioner().Provision(ctx))
	assert.Empty(t, fakes.Provider.Calls())
}
