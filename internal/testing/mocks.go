package testing

import (
	"context"
	"time"

	"github.com/imamik/tradefleet/internal/provisioning"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of provisioning.InfrastructureProvider.
type MockProvider struct {
	mock.Mock
}

// Create creates a mock instance.
func (m *MockProvider) Create(ctx context.Context, req provisioning.InstanceRequest) (*provisioning.Instance, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioning.Instance), args.Error(1)
}

// Destroy deletes a mock instance.
func (m *MockProvider) Destroy(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// GetAddress returns the mock address of an instance.
func (m *MockProvider) GetAddress(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// WaitUntilReady reports mock readiness.
func (m *MockProvider) WaitUntilReady(ctx context.Context, id string, timeout time.Duration) (bool, error) {
	args := m.Called(ctx, id, timeout)
	return args.Bool(0), args.Error(1)
}

// AllocateStableAddress allocates a mock stable address.
func (m *MockProvider) AllocateStableAddress(ctx context.Context, name, location string, labels map[string]string) (*provisioning.StableAddress, error) {
	args := m.Called(ctx, name, location, labels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provisioning.StableAddress), args.Error(1)
}

// AttachStableAddress attaches a mock stable address.
func (m *MockProvider) AttachStableAddress(ctx context.Context, name, instanceID string) error {
	args := m.Called(ctx, name, instanceID)
	return args.Error(0)
}

// ReleaseStableAddress releases a mock stable address.
func (m *MockProvider) ReleaseStableAddress(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MockSecurityConfigurer is a mock implementation of provisioning.SecurityConfigurer.
type MockSecurityConfigurer struct {
	mock.Mock
}

// ApplyBaseHardening mocks base hardening.
func (m *MockSecurityConfigurer) ApplyBaseHardening(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// ApplyFirewall mocks the firewall step.
func (m *MockSecurityConfigurer) ApplyFirewall(ctx context.Context, profile string) error {
	return m.Called(ctx, profile).Error(0)
}

// HardenSSH mocks the SSH lock-down.
func (m *MockSecurityConfigurer) HardenSSH(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// InstallIntrusionPrevention mocks the intrusion prevention step.
func (m *MockSecurityConfigurer) InstallIntrusionPrevention(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Close mocks closing the connection.
func (m *MockSecurityConfigurer) Close() error {
	return m.Called().Error(0)
}

// MockSecurityFactory is a mock implementation of provisioning.SecurityConfigurerFactory.
type MockSecurityFactory struct {
	mock.Mock
}

// New returns a mock configurer.
func (m *MockSecurityFactory) New(target provisioning.SecurityTarget) (provisioning.SecurityConfigurer, error) {
	args := m.Called(target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(provisioning.SecurityConfigurer), args.Error(1)
}

// MockServiceDeployer is a mock implementation of provisioning.ServiceDeployer.
type MockServiceDeployer struct {
	mock.Mock
}

// Deploy mocks a deployment.
func (m *MockServiceDeployer) Deploy(ctx context.Context, targets []string) error {
	return m.Called(ctx, targets).Error(0)
}

// MockServiceFactory is a mock implementation of provisioning.ServiceFactory.
type MockServiceFactory struct {
	mock.Mock
}

// Defaults returns the mock defaults.
func (m *MockServiceFactory) Defaults() map[string]any {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]any)
}

// New returns a mock deployer.
func (m *MockServiceFactory) New(cfg provisioning.ServiceConfig) (provisioning.ServiceDeployer, error) {
	args := m.Called(cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(provisioning.ServiceDeployer), args.Error(1)
}

// MockCleaner is a mock label-based cleaner.
type MockCleaner struct {
	mock.Mock
}

// CleanupByLabel mocks label cleanup.
func (m *MockCleaner) CleanupByLabel(ctx context.Context, selector map[string]string) error {
	return m.Called(ctx, selector).Error(0)
}
