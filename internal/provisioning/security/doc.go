// Package security implements the second deployment phase: it hardens
// every target named by the environment's security policy.
//
// Each target's address must resolve; an unresolved address fails the
// phase. The four hardening steps run in a fixed order. Under the "warn"
// policy a failing step is logged and the remaining steps still run;
// under "abort" it fails the phase.
package security
