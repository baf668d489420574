package provisioning

import "errors"

var (
	// ErrAddressUnresolved is returned when a target instance has no usable address.
	ErrAddressUnresolved = errors.New("instance address could not be resolved")

	// ErrReadinessTimeout is returned when an instance does not become ready in time.
	ErrReadinessTimeout = errors.New("instance did not become ready before the timeout")

	// ErrInterrupted is returned when a run is cancelled between phases.
	ErrInterrupted = errors.New("deployment interrupted")

	// ErrResourceNotFound may be returned by a provider for a resource that
	// no longer exists. Rollback treats it as success.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrAlreadyDeployed is returned when an orchestrator is asked to deploy twice.
	ErrAlreadyDeployed = errors.New("orchestrator has already run")
)
