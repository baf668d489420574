// Package naming provides consistent naming functions for fleet resources.
//
// Server and floating IP names follow the pattern {environment}-{instance}
// so that two environments can share one Hetzner project without clashes.
package naming
