// Package provisioning provides shared types, interfaces, and the phase runner for fleet deployment.
//
// # Subpackages
//
//   - infrastructure/: instance creation, readiness wait, stable addresses
//   - security/: per-target hardening over SSH
//   - workloads/: service deployment dispatched by service kind
//   - destroy/: label-based teardown of a whole environment
//
// # Core Types
//
// Context carries the descriptor, run state, collaborators, and observer.
// Phase defines a deployment step with Name() and Provision() methods.
// State is the append-only record of every resource a run created, in creation order.
package provisioning
