package hcloud

import (
	"context"
	"fmt"
	"reflect"

	"github.com/imamik/tradefleet/internal/util/retry"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// CreateResult wraps the result of a resource creation operation together
// with the action that has to finish before the resource is usable.
type CreateResult[T any] struct {
	Resource T
	Action   *hcloud.Action
}

// DeleteOperation encapsulates deletion logic for any hcloud resource.
//
//	return (&DeleteOperation[*hcloud.FloatingIP]{
//	    Name:         name,
//	    ResourceType: "floating IP",
//	    Get:          c.client.FloatingIP.Get,
//	    Delete:       c.client.FloatingIP.Delete,
//	}).Execute(ctx, c)
type DeleteOperation[T any] struct {
	// Name is passed to Get; hcloud Get functions accept an ID or a name.
	Name         string
	ResourceType string

	Get    func(ctx context.Context, idOrName string) (T, *hcloud.Response, error)
	Delete func(ctx context.Context, resource T) (*hcloud.Response, error)
}

// Execute performs the delete operation with retry logic and timeout handling.
// The operation is idempotent: it succeeds if the resource doesn't exist,
// including when it disappears between lookup and delete.
func (op *DeleteOperation[T]) Execute(ctx context.Context, client *RealClient) error {
	ctx, cancel := context.WithTimeout(ctx, client.timeouts.Delete)
	defer cancel()

	return retry.WithExponentialBackoff(ctx, func() error {
		resource, _, err := op.Get(ctx, op.Name)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return retry.Fatal(fmt.Errorf("failed to get %s %s: %w", op.ResourceType, op.Name, err))
		}

		if isNil(resource) {
			return nil
		}

		_, err = op.Delete(ctx, resource)
		switch {
		case err == nil, IsNotFound(err):
			return nil
		case isResourceLocked(err):
			return err
		default:
			return retry.Fatal(fmt.Errorf("failed to delete %s %s: %w", op.ResourceType, op.Name, err))
		}
	}, client.retryOpts(op.ResourceType+" "+op.Name)...)
}

// EnsureOperation encapsulates get-or-create logic for any hcloud resource.
// An existing resource is validated (if Validate is set) and returned as is.
type EnsureOperation[T any, CreateOpts any] struct {
	Name         string
	ResourceType string

	Get    func(ctx context.Context, idOrName string) (T, *hcloud.Response, error)
	Create func(ctx context.Context, opts CreateOpts) (*CreateResult[T], *hcloud.Response, error)

	// Validate checks if an existing resource matches the desired state (optional).
	Validate func(resource T) error

	CreateOptsMapper func() CreateOpts
}

// Execute returns the existing resource or creates it and waits for the
// creation action. created is true only when this call created the resource.
func (op *EnsureOperation[T, CreateOpts]) Execute(ctx context.Context, client *RealClient) (resource T, created bool, err error) {
	var zero T

	resource, _, err = op.Get(ctx, op.Name)
	if err != nil {
		return zero, false, fmt.Errorf("failed to get %s: %w", op.ResourceType, err)
	}

	if !isNil(resource) {
		if op.Validate != nil {
			if err := op.Validate(resource); err != nil {
				return zero, false, err
			}
		}
		return resource, false, nil
	}

	result, _, err := op.Create(ctx, op.CreateOptsMapper())
	if err != nil {
		return zero, false, fmt.Errorf("failed to create %s: %w", op.ResourceType, err)
	}

	if err := waitForActions(ctx, client.client, result.Action); err != nil {
		return result.Resource, true, fmt.Errorf("failed to wait for %s creation: %w", op.ResourceType, err)
	}

	return result.Resource, true, nil
}

// waitForActions waits for the non-nil actions to complete.
func waitForActions(ctx context.Context, client *hcloud.Client, actions ...*hcloud.Action) error {
	pending := make([]*hcloud.Action, 0, len(actions))
	for _, a := range actions {
		if a != nil {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return client.Action.WaitFor(ctx, pending...)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
