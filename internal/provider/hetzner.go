package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/imamik/tradefleet/internal/platform/hcloud"
	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/util/retry"

	hcloudgo "github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// defaultPollInterval is used when no interval is configured.
const defaultPollInterval = 5 * time.Second

// Client is the part of the Hetzner client the provider uses.
type Client interface {
	hcloud.ServerManager
	hcloud.FloatingIPManager
}

// HetznerProvider implements provisioning.InfrastructureProvider on Hetzner Cloud.
type HetznerProvider struct {
	client       Client
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ provisioning.InfrastructureProvider = (*HetznerProvider)(nil)

// Option configures a HetznerProvider.
type Option func(*HetznerProvider)

// WithPollInterval sets the fixed interval between readiness checks.
func WithPollInterval(d time.Duration) Option {
	return func(p *HetznerProvider) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *HetznerProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewHetznerProvider wraps a Hetzner client.
func NewHetznerProvider(client Client, opts ...Option) *HetznerProvider {
	p := &HetznerProvider{
		client:       client,
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Create creates a server for the request.
func (p *HetznerProvider) Create(ctx context.Context, req provisioning.InstanceRequest) (*provisioning.Instance, error) {
	var sshKeys []string
	if req.KeyPair != "" {
		sshKeys = []string{req.KeyPair}
	}

	server, err := p.client.CreateServer(ctx, hcloud.ServerCreateOpts{
		Name:       req.Name,
		Image:      req.Image,
		ServerType: req.Size,
		Location:   req.Location,
		SSHKeys:    sshKeys,
		Labels:     req.Labels,
	})
	if err != nil {
		if server != nil {
			// The server exists even though waiting for it failed.
			return toInstance(server), err
		}
		return nil, err
	}
	p.logger.Debug("server created", "name", server.Name, "id", server.ID)
	return toInstance(server), nil
}

// Destroy deletes a server. A server that is already gone is not an error.
func (p *HetznerProvider) Destroy(ctx context.Context, id string) error {
	serverID, err := parseID(id)
	if err != nil {
		return err
	}
	return p.client.DeleteServerByID(ctx, serverID)
}

// GetAddress returns the public IPv4 address of a server.
func (p *HetznerProvider) GetAddress(ctx context.Context, id string) (string, error) {
	serverID, err := parseID(id)
	if err != nil {
		return "", err
	}
	server, err := p.client.GetServerByID(ctx, serverID)
	if err != nil {
		return "", err
	}
	if server == nil {
		return "", fmt.Errorf("server %s not found: %w", id, provisioning.ErrResourceNotFound)
	}
	return hcloud.ServerIPv4(server), nil
}

// WaitUntilReady polls the server status at a fixed interval until it is
// running. It returns false without error when timeout elapses first.
func (p *HetznerProvider) WaitUntilReady(ctx context.Context, id string, timeout time.Duration) (bool, error) {
	serverID, err := parseID(id)
	if err != nil {
		return false, err
	}

	return retry.Poll(ctx, p.pollInterval, timeout, func() (bool, error) {
		server, err := p.client.GetServerByID(ctx, serverID)
		if err != nil {
			return false, err
		}
		if server == nil {
			return false, fmt.Errorf("server %s disappeared while waiting", id)
		}
		p.logger.Debug("server status", "id", id, "status", server.Status)
		return server.Status == hcloudgo.ServerStatusRunning, nil
	})
}

// AllocateStableAddress ensures an IPv4 floating IP with the given name exists.
// An existing floating IP is reused and reported with Created unset.
func (p *HetznerProvider) AllocateStableAddress(ctx context.Context, name, location string, labels map[string]string) (*provisioning.StableAddress, error) {
	fip, created, err := p.client.EnsureFloatingIP(ctx, name, location, labels)
	if err != nil {
		return nil, err
	}
	addr := &provisioning.StableAddress{
		ID:      strconv.FormatInt(fip.ID, 10),
		Name:    fip.Name,
		Created: created,
	}
	if fip.IP != nil {
		addr.Address = fip.IP.String()
	}
	return addr, nil
}

// AttachStableAddress assigns the named floating IP to a server.
func (p *HetznerProvider) AttachStableAddress(ctx context.Context, name, instanceID string) error {
	serverID, err := parseID(instanceID)
	if err != nil {
		return err
	}
	return p.client.AssignFloatingIP(ctx, name, serverID)
}

// ReleaseStableAddress deletes the named floating IP. A missing address is not an error.
func (p *HetznerProvider) ReleaseStableAddress(ctx context.Context, name string) error {
	return p.client.DeleteFloatingIP(ctx, name)
}

func toInstance(server *hcloudgo.Server) *provisioning.Instance {
	return &provisioning.Instance{
		ID:      strconv.FormatInt(server.ID, 10),
		Name:    server.Name,
		Address: hcloud.ServerIPv4(server),
	}
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid instance id %q: %w", id, err)
	}
	return n, nil
}
