package testing

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/imamik/tradefleet/internal/provisioning"
)

// FakeProvider is an in-memory infrastructure provider. Instance IDs are
// assigned sequentially from "1". Every call is appended to Calls as
// "<operation>:<argument>".
type FakeProvider struct {
	mu        sync.Mutex
	nextID    int
	calls     []string
	instances map[string]*provisioning.Instance
	names     map[string]string // request name -> id
	stable    map[string]*provisioning.StableAddress

	// CreateErr fails Create for the given request name.
	CreateErr map[string]error
	// CreateLeaks makes a failing Create still return (and keep) the instance.
	CreateLeaks bool
	// NotReady makes WaitUntilReady report a timeout for the given request name.
	NotReady map[string]bool
	// DeferAddress makes Create return instances without an address.
	DeferAddress bool
	// DestroyErr fails Destroy for the given instance ID.
	DestroyErr map[string]error
	// AttachErr fails AttachStableAddress for the given address name.
	AttachErr map[string]error
	// ReleaseErr fails ReleaseStableAddress for the given address name.
	ReleaseErr map[string]error
	// OnCreate runs after an instance is created, before Create returns.
	OnCreate func(req provisioning.InstanceRequest)
}

// NewFakeProvider creates an empty fake provider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		instances:  make(map[string]*provisioning.Instance),
		names:      make(map[string]string),
		stable:     make(map[string]*provisioning.StableAddress),
		CreateErr:  make(map[string]error),
		NotReady:   make(map[string]bool),
		DestroyErr: make(map[string]error),
		AttachErr:  make(map[string]error),
		ReleaseErr: make(map[string]error),
	}
}

// Create implements provisioning.InfrastructureProvider.
func (p *FakeProvider) Create(_ context.Context, req provisioning.InstanceRequest) (*provisioning.Instance, error) {
	p.mu.Lock()
	p.record("create", req.Name)
	err := p.CreateErr[req.Name]
	if err != nil && !p.CreateLeaks {
		p.mu.Unlock()
		return nil, err
	}

	p.nextID++
	id := fmt.Sprint(p.nextID)
	inst := &provisioning.Instance{ID: id, Name: req.Name}
	if !p.DeferAddress {
		inst.Address = fmt.Sprintf("203.0.113.%d", p.nextID)
	}
	p.instances[id] = inst
	p.names[req.Name] = id
	hook := p.OnCreate
	p.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	out := *inst
	return &out, err
}

// Destroy implements provisioning.InfrastructureProvider. Unknown IDs are
// treated as already deleted.
func (p *FakeProvider) Destroy(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("destroy", id)
	if err := p.DestroyErr[id]; err != nil {
		return err
	}
	delete(p.instances, id)
	return nil
}

// GetAddress implements provisioning.InfrastructureProvider.
func (p *FakeProvider) GetAddress(_ context.Context, id string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("address", id)
	inst, ok := p.instances[id]
	if !ok {
		return "", fmt.Errorf("instance %s not found", id)
	}
	if inst.Address == "" {
		inst.Address = "203.0.113." + id
	}
	return inst.Address, nil
}

// WaitUntilReady implements provisioning.InfrastructureProvider.
func (p *FakeProvider) WaitUntilReady(_ context.Context, id string, _ time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait", id)
	inst, ok := p.instances[id]
	if !ok {
		return false, fmt.Errorf("instance %s not found", id)
	}
	return !p.NotReady[inst.Name], nil
}

// AllocateStableAddress implements provisioning.InfrastructureProvider.
func (p *FakeProvider) AllocateStableAddress(_ context.Context, name, _ string, _ map[string]string) (*provisioning.StableAddress, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("allocate", name)
	addr, ok := p.stable[name]
	if !ok {
		addr = p.addStable(name)
	}
	out := *addr
	out.Created = !ok
	return &out, nil
}

// SeedStableAddress adds a stable address that exists before any run, as
// one left by an earlier deployment would.
func (p *FakeProvider) SeedStableAddress(name string) *provisioning.StableAddress {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := *p.addStable(name)
	return &out
}

func (p *FakeProvider) addStable(name string) *provisioning.StableAddress {
	addr := &provisioning.StableAddress{
		ID:      fmt.Sprintf("fip-%d", len(p.stable)+1),
		Name:    name,
		Address: fmt.Sprintf("198.51.100.%d", len(p.stable)+1),
	}
	p.stable[name] = addr
	return addr
}

// AttachStableAddress implements provisioning.InfrastructureProvider.
func (p *FakeProvider) AttachStableAddress(_ context.Context, name, instanceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("attach", name)
	if err := p.AttachErr[name]; err != nil {
		return err
	}
	if _, ok := p.stable[name]; !ok {
		return fmt.Errorf("stable address %s not found", name)
	}
	if _, ok := p.instances[instanceID]; !ok {
		return fmt.Errorf("instance %s not found", instanceID)
	}
	return nil
}

// ReleaseStableAddress implements provisioning.InfrastructureProvider.
func (p *FakeProvider) ReleaseStableAddress(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("release", name)
	if err := p.ReleaseErr[name]; err != nil {
		return err
	}
	delete(p.stable, name)
	return nil
}

// Calls returns every call in order.
func (p *FakeProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

// CallsOf returns the arguments of every call to operation, in order.
func (p *FakeProvider) CallsOf(operation string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	prefix := operation + ":"
	for _, c := range p.calls {
		if len(c) > len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c[len(prefix):])
		}
	}
	return out
}

// Live returns the IDs of instances that still exist, sorted.
func (p *FakeProvider) Live() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Sorted(maps.Keys(p.instances))
}

// StableAddresses returns the names of stable addresses that still exist, sorted.
func (p *FakeProvider) StableAddresses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Sorted(maps.Keys(p.stable))
}

// IDOf returns the instance ID created for a request name.
func (p *FakeProvider) IDOf(requestName string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.names[requestName]
}

func (p *FakeProvider) record(op, arg string) {
	p.calls = append(p.calls, op+":"+arg)
}

// FakeSecurityFactory builds FakeConfigurers and records every step.
type FakeSecurityFactory struct {
	mu      sync.Mutex
	targets []provisioning.SecurityTarget
	calls   []string

	// NewErr fails New for the given instance.
	NewErr map[string]error
	// StepErr fails the named step ("base-hardening", "firewall",
	// "ssh-lockdown", "intrusion-prevention") on every target.
	StepErr map[string]error
	// CloseErr is returned by every configurer's Close.
	CloseErr error
}

// NewFakeSecurityFactory creates a factory whose configurers always succeed.
func NewFakeSecurityFactory() *FakeSecurityFactory {
	return &FakeSecurityFactory{
		NewErr:  make(map[string]error),
		StepErr: make(map[string]error),
	}
}

// New implements provisioning.SecurityConfigurerFactory.
func (f *FakeSecurityFactory) New(target provisioning.SecurityTarget) (provisioning.SecurityConfigurer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	if err := f.NewErr[target.Instance]; err != nil {
		return nil, err
	}
	return &FakeConfigurer{factory: f, instance: target.Instance}, nil
}

// Targets returns every target New was called with.
func (f *FakeSecurityFactory) Targets() []provisioning.SecurityTarget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.targets)
}

// Calls returns every configurer call as "<step>:<instance>".
func (f *FakeSecurityFactory) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *FakeSecurityFactory) step(name, instance string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name+":"+instance)
	if name == "close" {
		return f.CloseErr
	}
	return f.StepErr[name]
}

// FakeConfigurer is the configurer built by FakeSecurityFactory.
type FakeConfigurer struct {
	factory  *FakeSecurityFactory
	instance string
}

// ApplyBaseHardening implements provisioning.SecurityConfigurer.
func (c *FakeConfigurer) ApplyBaseHardening(context.Context) error {
	return c.factory.step("base-hardening", c.instance)
}

// ApplyFirewall implements provisioning.SecurityConfigurer.
func (c *FakeConfigurer) ApplyFirewall(_ context.Context, profile string) error {
	if err := c.factory.step("firewall", c.instance); err != nil {
		return err
	}
	c.factory.mu.Lock()
	c.factory.calls = append(c.factory.calls, "profile:"+profile)
	c.factory.mu.Unlock()
	return nil
}

// HardenSSH implements provisioning.SecurityConfigurer.
func (c *FakeConfigurer) HardenSSH(context.Context) error {
	return c.factory.step("ssh-lockdown", c.instance)
}

// InstallIntrusionPrevention implements provisioning.SecurityConfigurer.
func (c *FakeConfigurer) InstallIntrusionPrevention(context.Context) error {
	return c.factory.step("intrusion-prevention", c.instance)
}

// Close implements provisioning.SecurityConfigurer.
func (c *FakeConfigurer) Close() error {
	return c.factory.step("close", c.instance)
}

// FakeRegistry is a service registry of FakeServiceFactories.
type FakeRegistry struct {
	factories map[string]*FakeServiceFactory
}

// NewFakeRegistry registers a fake factory for each kind.
func NewFakeRegistry(kinds ...string) *FakeRegistry {
	r := &FakeRegistry{factories: make(map[string]*FakeServiceFactory)}
	for _, k := range kinds {
		r.factories[k] = &FakeServiceFactory{Kind: k}
	}
	return r
}

// Lookup implements provisioning.ServiceRegistry.
func (r *FakeRegistry) Lookup(kind string) (provisioning.ServiceFactory, bool) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, false
	}
	return f, true
}

// Factory returns the fake factory for kind, or nil.
func (r *FakeRegistry) Factory(kind string) *FakeServiceFactory {
	return r.factories[kind]
}

// FakeServiceFactory records configurations and deployments for one kind.
type FakeServiceFactory struct {
	Kind           string
	DefaultConfig  map[string]any
	NewErr         error
	DeployErr      error
	OnDeploy       func(targets []string)
	mu             sync.Mutex
	configs        []provisioning.ServiceConfig
	deployedTarget []string
}

// Defaults implements provisioning.ServiceFactory.
func (f *FakeServiceFactory) Defaults() map[string]any {
	return maps.Clone(f.DefaultConfig)
}

// New implements provisioning.ServiceFactory.
func (f *FakeServiceFactory) New(cfg provisioning.ServiceConfig) (provisioning.ServiceDeployer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, cfg)
	if f.NewErr != nil {
		return nil, f.NewErr
	}
	return fakeDeployer{factory: f}, nil
}

// Configs returns every configuration New was called with.
func (f *FakeServiceFactory) Configs() []provisioning.ServiceConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.configs)
}

// Deployed returns every address deployed to, in order.
func (f *FakeServiceFactory) Deployed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deployedTarget)
}

type fakeDeployer struct {
	factory *FakeServiceFactory
}

func (d fakeDeployer) Deploy(_ context.Context, targets []string) error {
	if d.factory.OnDeploy != nil {
		d.factory.OnDeploy(targets)
	}
	d.factory.mu.Lock()
	defer d.factory.mu.Unlock()
	if d.factory.DeployErr != nil {
		return d.factory.DeployErr
	}
	d.factory.deployedTarget = append(d.factory.deployedTarget, targets...)
	return nil
}

// FakeJournal is an in-memory provisioning.Journal.
type FakeJournal struct {
	mu      sync.Mutex
	runs    map[string]provisioning.RunInfo
	order   []string
	records map[string][]provisioning.ResourceRecord

	// AppendErr fails every Append.
	AppendErr error
}

// NewFakeJournal creates an empty journal.
func NewFakeJournal() *FakeJournal {
	return &FakeJournal{
		runs:    make(map[string]provisioning.RunInfo),
		records: make(map[string][]provisioning.ResourceRecord),
	}
}

// Begin implements provisioning.Journal.
func (j *FakeJournal) Begin(run provisioning.RunInfo) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.runs[run.ID]; ok {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	j.runs[run.ID] = run
	j.order = append(j.order, run.ID)
	return nil
}

// Append implements provisioning.Journal.
func (j *FakeJournal) Append(runID string, rec provisioning.ResourceRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.AppendErr != nil {
		return j.AppendErr
	}
	if _, ok := j.runs[runID]; !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	j.records[runID] = append(j.records[runID], rec)
	return nil
}

// Finish implements provisioning.Journal.
func (j *FakeJournal) Finish(runID string, status provisioning.RunStatus) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	run, ok := j.runs[runID]
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	run.Status = status
	run.FinishedAt = time.Now().UTC()
	j.runs[runID] = run
	return nil
}

// Records implements provisioning.Journal.
func (j *FakeJournal) Records(runID string) ([]provisioning.ResourceRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.runs[runID]; !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return slices.Clone(j.records[runID]), nil
}

// Runs implements provisioning.Journal.
func (j *FakeJournal) Runs() ([]provisioning.RunInfo, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]provisioning.RunInfo, 0, len(j.order))
	for _, id := range j.order {
		out = append(out, j.runs[id])
	}
	return out, nil
}

// Status returns the status of a run.
func (j *FakeJournal) Status(runID string) provisioning.RunStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs[runID].Status
}
