package hcloud

import (
	"context"
	"fmt"
	"strconv"

	"github.com/imamik/tradefleet/internal/util/labels"
	"github.com/imamik/tradefleet/internal/util/retry"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// CreateServer creates a new server with the given specifications and
// waits for the create action to finish.
func (c *RealClient) CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.ServerCreate)
	defer cancel()

	createOpts, err := c.buildServerCreateOpts(ctx, opts)
	if err != nil {
		return nil, err
	}

	var result hcloud.ServerCreateResult
	err = retry.WithExponentialBackoff(ctx, func() error {
		res, _, err := c.client.Server.Create(ctx, createOpts)
		if err != nil {
			if isInvalidParameter(err) {
				return retry.Fatal(err)
			}
			return err
		}
		result = res
		return nil
	}, c.retryOpts("server "+opts.Name)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server %s: %w", opts.Name, err)
	}

	if err := waitForActions(ctx, c.client, result.Action); err != nil {
		return result.Server, fmt.Errorf("failed to wait for server %s creation: %w", opts.Name, err)
	}

	return result.Server, nil
}

// buildServerCreateOpts resolves server type, image, SSH keys and location.
func (c *RealClient) buildServerCreateOpts(ctx context.Context, opts ServerCreateOpts) (hcloud.ServerCreateOpts, error) {
	serverType, _, err := c.client.ServerType.Get(ctx, opts.ServerType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get server type: %w", err)
	}
	if serverType == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("server type not found: %s", opts.ServerType)
	}

	image, _, err := c.client.Image.GetForArchitecture(ctx, opts.Image, serverType.Architecture)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get image: %w", err)
	}
	if image == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("image not found: %s (%s)", opts.Image, serverType.Architecture)
	}

	var sshKeys []*hcloud.SSHKey
	for _, name := range opts.SSHKeys {
		key, _, err := c.client.SSHKey.Get(ctx, name)
		if err != nil {
			return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get ssh key %s: %w", name, err)
		}
		if key == nil {
			return hcloud.ServerCreateOpts{}, fmt.Errorf("ssh key not found: %s", name)
		}
		sshKeys = append(sshKeys, key)
	}

	var location *hcloud.Location
	if opts.Location != "" {
		location, _, err = c.client.Location.Get(ctx, opts.Location)
		if err != nil {
			return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get location %s: %w", opts.Location, err)
		}
		if location == nil {
			return hcloud.ServerCreateOpts{}, fmt.Errorf("location not found: %s", opts.Location)
		}
	}

	return hcloud.ServerCreateOpts{
		Name:       opts.Name,
		ServerType: serverType,
		Image:      image,
		SSHKeys:    sshKeys,
		Location:   location,
		Labels:     opts.Labels,
		UserData:   opts.UserData,
	}, nil
}

// GetServerByID returns the server with the given ID, or nil if it does not exist.
func (c *RealClient) GetServerByID(ctx context.Context, id int64) (*hcloud.Server, error) {
	server, _, err := c.client.Server.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get server %d: %w", id, err)
	}
	return server, nil
}

// DeleteServerByID deletes the server with the given ID.
func (c *RealClient) DeleteServerByID(ctx context.Context, id int64) error {
	return (&DeleteOperation[*hcloud.Server]{
		Name:         strconv.FormatInt(id, 10),
		ResourceType: "server",
		Get:          c.client.Server.Get,
		Delete: func(ctx context.Context, server *hcloud.Server) (*hcloud.Response, error) {
			result, resp, err := c.client.Server.DeleteWithResult(ctx, server)
			if err != nil {
				return resp, err
			}
			return resp, waitForActions(ctx, c.client, result.Action)
		},
	}).Execute(ctx, c)
}

// GetServersByLabel returns all servers matching the given labels.
func (c *RealClient) GetServersByLabel(ctx context.Context, selector map[string]string) ([]*hcloud.Server, error) {
	servers, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: labels.Selector(selector)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	return servers, nil
}

// ServerIPv4 extracts the public IPv4 address from a server, or empty string if not set.
func ServerIPv4(s *hcloud.Server) string {
	if s != nil && s.PublicNet.IPv4.IP != nil && !s.PublicNet.IPv4.IP.IsUnspecified() {
		return s.PublicNet.IPv4.IP.String()
	}
	return ""
}
