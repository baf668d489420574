// Package workloads implements the third deployment phase: it installs
// every service of the environment on its target instance.
package workloads
