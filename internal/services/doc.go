// Package services installs fleet workloads (data collectors, the
// monitoring stack, trading bots) as systemd-managed containers.
//
// The set of service kinds is closed: every kind is a definition in a
// compile-time table and the Registry is built from that table only.
package services
