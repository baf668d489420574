// Package hcloud provides a wrapper around the Hetzner Cloud API client with
// retry logic, timeout management, and error classification.
//
// # Architecture
//
//   - client.go: interfaces consumed by the rest of the module
//   - real_client.go: RealClient construction and options
//   - operations.go: generic Ensure and Delete operations
//   - server.go: server creation, lookup, and deletion
//   - floating_ip.go: floating IPs used as stable instance addresses
//   - cleanup.go: label-based teardown
//   - errors.go: error classification for retry logic
//
// # Generic Operations
//
// DeleteOperation provides idempotent resource deletion: a resource that no
// longer exists counts as deleted, locked resources are retried with
// exponential backoff, and any other failure is fatal.
//
// EnsureOperation provides get-or-create semantics and waits for the
// creation actions to finish.
package hcloud
