package hcloud

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// ServerCreateOpts holds all parameters for creating an HCloud server.
type ServerCreateOpts struct {
	Name       string
	Image      string
	ServerType string
	Location   string
	SSHKeys    []string
	Labels     map[string]string
	UserData   string
}

// ServerManager defines the server operations used by the fleet.
type ServerManager interface {
	// CreateServer creates a server and waits for the create action.
	CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error)

	// GetServerByID returns the server with the given ID, or nil if it does not exist.
	GetServerByID(ctx context.Context, id int64) (*hcloud.Server, error)

	// DeleteServerByID deletes a server. A missing server is not an error.
	DeleteServerByID(ctx context.Context, id int64) error

	// GetServersByLabel returns all servers matching every given label.
	GetServersByLabel(ctx context.Context, labels map[string]string) ([]*hcloud.Server, error)
}

// FloatingIPManager defines the floating IP operations used for stable addresses.
type FloatingIPManager interface {
	// EnsureFloatingIP returns the named floating IP, creating it if absent.
	// The bool is true only when it was created by this call.
	EnsureFloatingIP(ctx context.Context, name, homeLocation string, labels map[string]string) (*hcloud.FloatingIP, bool, error)
	AssignFloatingIP(ctx context.Context, name string, serverID int64) error
	DeleteFloatingIP(ctx context.Context, name string) error
	GetFloatingIP(ctx context.Context, name string) (*hcloud.FloatingIP, error)
}

// Cleaner deletes everything carrying a set of labels.
type Cleaner interface {
	CleanupByLabel(ctx context.Context, labelSelector map[string]string) error
}

// Client combines all Hetzner operations.
type Client interface {
	ServerManager
	FloatingIPManager
	Cleaner
}

var _ Client = (*RealClient)(nil)
