package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/tradefleet/internal/config"
)

// Context wraps all dependencies and state needed for a deployment phase.
type Context struct {
	context.Context
	Env      *config.Environment
	RunID    string
	State    *State
	Provider InfrastructureProvider
	Security SecurityConfigurerFactory
	Services ServiceRegistry
	Journal  Journal  // Optional
	Metrics  *Metrics // Optional
	Observer Observer
	Timeouts *config.Timeouts

	// Now returns the record timestamp. Tests replace it.
	Now func() time.Time
}

// NewContext creates a deployment context with an empty state, a slog
// observer and timeouts from the environment. Collaborators are set by
// the caller.
func NewContext(ctx context.Context, env *config.Environment, runID string) *Context {
	return &Context{
		Context:  ctx,
		Env:      env,
		RunID:    runID,
		State:    NewState(),
		Observer: NewSlogObserver(nil),
		Timeouts: config.LoadTimeouts(),
		Now:      time.Now,
	}
}

// Record appends a completed resource to the run state and then to the
// journal. A journal failure is returned, but the record stays in State so
// an in-process rollback still sees it.
func (c *Context) Record(rec ResourceRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = c.now()
	}
	rec.Pending = false

	if err := c.State.Append(rec); err != nil {
		return err
	}
	c.Metrics.ResourceRecorded(rec.Kind)

	if c.Journal != nil {
		if err := c.Journal.Append(c.RunID, rec); err != nil {
			return fmt.Errorf("failed to journal %s: %w", rec.Key, err)
		}
	}
	return nil
}

// Track journals a resource that exists at the provider but whose creation
// step has not finished. It never touches State. Journal failures are
// reported as warnings.
func (c *Context) Track(rec ResourceRecord) {
	if c.Journal == nil {
		return
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = c.now()
	}
	rec.Pending = true
	if err := c.Journal.Append(c.RunID, rec); err != nil {
		c.Observer.Warnf("failed to journal pending %s: %v", rec.Key, err)
	}
}

// ResolveAddress returns the address of a recorded instance. The stable
// address wins over the instance address; an instance recorded without
// an address is asked for it again. Unknown instances and empty
// addresses yield ErrAddressUnresolved.
func (c *Context) ResolveAddress(name string) (string, error) {
	rec, ok := c.State.Instance(name)
	if !ok {
		return "", fmt.Errorf("%s was not provisioned in this run: %w", name, ErrAddressUnresolved)
	}
	if rec.StableAddress != "" {
		return rec.StableAddress, nil
	}
	if rec.Address != "" {
		return rec.Address, nil
	}
	if c.Provider != nil && rec.InstanceID != "" {
		addr, err := c.Provider.GetAddress(c, rec.InstanceID)
		if err != nil {
			return "", fmt.Errorf("%s: %w: %w", name, ErrAddressUnresolved, err)
		}
		if addr != "" {
			return addr, nil
		}
	}
	return "", fmt.Errorf("%s has no address: %w", name, ErrAddressUnresolved)
}

func (c *Context) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}
