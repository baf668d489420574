// Package provider adapts the Hetzner Cloud client to the instance
// lifecycle the deployment phases work with: string instance ids,
// readiness polling and floating IPs as stable addresses.
package provider
