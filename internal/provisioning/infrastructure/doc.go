// Package infrastructure implements the first deployment phase: it creates
// every instance of the environment in descriptor order, waits for it to
// become ready, attaches a stable address where requested and records it.
package infrastructure
