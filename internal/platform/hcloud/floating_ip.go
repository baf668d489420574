package hcloud

import (
	"context"
	"fmt"

	"github.com/imamik/tradefleet/internal/util/retry"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// floatingIPCreateParams holds parameters for creating a floating IP.
type floatingIPCreateParams struct {
	name         string
	homeLocation string
	labels       map[string]string
}

// EnsureFloatingIP ensures that an IPv4 floating IP with the given name exists.
// The bool reports whether this call created it.
func (c *RealClient) EnsureFloatingIP(ctx context.Context, name, homeLocation string, labels map[string]string) (*hcloud.FloatingIP, bool, error) {
	params := floatingIPCreateParams{
		name:         name,
		homeLocation: homeLocation,
		labels:       labels,
	}

	return (&EnsureOperation[*hcloud.FloatingIP, floatingIPCreateParams]{
		Name:         name,
		ResourceType: "floating IP",
		Get:          c.client.FloatingIP.Get,
		Create:       c.createFloatingIP,
		Validate: func(fip *hcloud.FloatingIP) error {
			if fip.Type != hcloud.FloatingIPTypeIPv4 {
				return fmt.Errorf("floating IP %s exists with type %s, expected ipv4", name, fip.Type)
			}
			return nil
		},
		CreateOptsMapper: func() floatingIPCreateParams {
			return params
		},
	}).Execute(ctx, c)
}

// createFloatingIP resolves the home location and creates a floating IP.
func (c *RealClient) createFloatingIP(ctx context.Context, params floatingIPCreateParams) (*CreateResult[*hcloud.FloatingIP], *hcloud.Response, error) {
	loc, _, err := c.client.Location.Get(ctx, params.homeLocation)
	if err != nil {
		return nil, nil, err
	}
	if loc == nil {
		return nil, nil, fmt.Errorf("location not found: %s", params.homeLocation)
	}

	res, resp, err := c.client.FloatingIP.Create(ctx, hcloud.FloatingIPCreateOpts{
		Name:         &params.name,
		Type:         hcloud.FloatingIPTypeIPv4,
		HomeLocation: loc,
		Labels:       params.labels,
	})
	if err != nil {
		return nil, resp, err
	}
	return &CreateResult[*hcloud.FloatingIP]{Resource: res.FloatingIP, Action: res.Action}, resp, nil
}

// AssignFloatingIP points the named floating IP at a server. Locked
// resources are retried.
func (c *RealClient) AssignFloatingIP(ctx context.Context, name string, serverID int64) error {
	fip, _, err := c.client.FloatingIP.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get floating IP %s: %w", name, err)
	}
	if fip == nil {
		return fmt.Errorf("floating IP not found: %s", name)
	}
	if fip.Server != nil && fip.Server.ID == serverID {
		return nil
	}

	err = retry.WithExponentialBackoff(ctx, func() error {
		action, _, err := c.client.FloatingIP.Assign(ctx, fip, &hcloud.Server{ID: serverID})
		if err != nil {
			if isResourceLocked(err) {
				return err
			}
			return retry.Fatal(err)
		}
		return waitForActions(ctx, c.client, action)
	}, c.retryOpts("floating IP "+name)...)
	if err != nil {
		return fmt.Errorf("failed to assign floating IP %s to server %d: %w", name, serverID, err)
	}
	return nil
}

// DeleteFloatingIP deletes the floating IP with the given name.
func (c *RealClient) DeleteFloatingIP(ctx context.Context, name string) error {
	return (&DeleteOperation[*hcloud.FloatingIP]{
		Name:         name,
		ResourceType: "floating IP",
		Get:          c.client.FloatingIP.Get,
		Delete:       c.client.FloatingIP.Delete,
	}).Execute(ctx, c)
}

// GetFloatingIP returns the floating IP with the given name, or nil.
func (c *RealClient) GetFloatingIP(ctx context.Context, name string) (*hcloud.FloatingIP, error) {
	fip, _, err := c.client.FloatingIP.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get floating IP %s: %w", name, err)
	}
	return fip, nil
}
