package hcloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/imamik/tradefleet/internal/util/labels"
	"github.com/imamik/tradefleet/internal/util/retry"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// cleanupPollInterval is how often remaining servers are listed while
// waiting for deletion to finish.
var cleanupPollInterval = 5 * time.Second

// CleanupError represents accumulated errors from cleanup operations.
type CleanupError struct {
	Errors []error
}

func (e *CleanupError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("cleanup encountered %d errors: %v", len(e.Errors), errors.Join(e.Errors...))
}

func (e *CleanupError) Unwrap() []error {
	return e.Errors
}

// Add records err if it is non-nil.
func (e *CleanupError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors reports whether any error was recorded.
func (e *CleanupError) HasErrors() bool {
	return len(e.Errors) > 0
}

// resource is a constraint for the Hetzner Cloud resources the fleet creates.
type resource interface {
	*hcloud.Server | *hcloud.FloatingIP
}

func describe[T resource](r T) (string, int64) {
	switch v := any(r).(type) {
	case *hcloud.Server:
		return v.Name, v.ID
	case *hcloud.FloatingIP:
		return v.Name, v.ID
	default:
		return "", 0
	}
}

// deleteResourcesByLabel deletes every listed resource and joins the failures.
func deleteResourcesByLabel[T resource](
	ctx context.Context,
	logger *slog.Logger,
	resourceType string,
	listFn func(context.Context) ([]T, error),
	deleteFn func(context.Context, T) error,
) (int, error) {
	resources, err := listFn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", resourceType, err)
	}

	var deleteErrs []error
	for _, r := range resources {
		name, id := describe(r)
		logger.Info("deleting "+resourceType, "name", name, "id", id)
		if err := deleteFn(ctx, r); err != nil && !IsNotFound(err) {
			logger.Warn("failed to delete "+resourceType, "name", name, "error", err)
			deleteErrs = append(deleteErrs, fmt.Errorf("%s %q: %w", resourceType, name, err))
		}
	}
	return len(resources), errors.Join(deleteErrs...)
}

// CleanupByLabel deletes all servers and floating IPs matching the given
// labels. Servers go first so that floating IPs are unassigned. Every
// resource type is attempted even if an earlier one fails.
func (c *RealClient) CleanupByLabel(ctx context.Context, selector map[string]string) error {
	labelSelector := labels.Selector(selector)
	c.logger.Info("starting cleanup", "selector", labelSelector)
	cleanupErrs := &CleanupError{}

	if err := c.deleteServersByLabel(ctx, labelSelector); err != nil {
		cleanupErrs.Add(fmt.Errorf("servers: %w", err))
	}

	if err := c.deleteFloatingIPsByLabel(ctx, labelSelector); err != nil {
		cleanupErrs.Add(fmt.Errorf("floating IPs: %w", err))
	}

	if cleanupErrs.HasErrors() {
		c.logger.Warn("cleanup completed with errors", "count", len(cleanupErrs.Errors))
		return cleanupErrs
	}

	c.logger.Info("cleanup complete", "selector", labelSelector)
	return nil
}

// deleteServersByLabel deletes all servers matching the label selector
// and waits until none are listed any more.
func (c *RealClient) deleteServersByLabel(ctx context.Context, labelSelector string) error {
	list := func(ctx context.Context) ([]*hcloud.Server, error) {
		return c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
			ListOpts: hcloud.ListOpts{LabelSelector: labelSelector},
		})
	}

	count, err := deleteResourcesByLabel(ctx, c.logger, "server", list,
		func(ctx context.Context, s *hcloud.Server) error {
			_, _, err := c.client.Server.DeleteWithResult(ctx, s)
			return err
		},
	)
	if count == 0 || err != nil {
		return err
	}

	gone, err := retry.Poll(ctx, cleanupPollInterval, c.timeouts.Delete, func() (bool, error) {
		remaining, err := list(ctx)
		if err != nil {
			return false, err
		}
		return len(remaining) == 0, nil
	})
	if err != nil {
		return fmt.Errorf("failed to check remaining servers: %w", err)
	}
	if !gone {
		return fmt.Errorf("servers still present after %v", c.timeouts.Delete)
	}
	return nil
}

// deleteFloatingIPsByLabel deletes all floating IPs matching the label selector.
func (c *RealClient) deleteFloatingIPsByLabel(ctx context.Context, labelSelector string) error {
	_, err := deleteResourcesByLabel(ctx, c.logger, "floating IP",
		func(ctx context.Context) ([]*hcloud.FloatingIP, error) {
			return c.client.FloatingIP.AllWithOpts(ctx, hcloud.FloatingIPListOpts{
				ListOpts: hcloud.ListOpts{LabelSelector: labelSelector},
			})
		},
		func(ctx context.Context, fip *hcloud.FloatingIP) error {
			_, err := c.client.FloatingIP.Delete(ctx, fip)
			return err
		},
	)
	return err
}
