// Package orchestration drives one deployment run end to end.
//
// The Orchestrator runs the provisioning phases in a fixed order:
//  1. Infrastructure - instances, readiness, stable addresses
//  2. Security - hardening of the policy's targets over SSH
//  3. Services - workload installation per service kind
//
// Every completed resource is recorded in the run's append-only state (and
// journal) before the next one starts. When a phase fails, the run stops,
// the caller's rollback decider is consulted, and a rollback destroys the
// recorded instances in reverse creation order. Hardening and installed
// services are not reversed.
//
// # Usage
//
//	orch := orchestration.New(env, orchestration.Dependencies{
//	    Provider: provider,
//	    Security: hardening.NewFactory(timeout, logger),
//	    Services: services.NewRegistry(connector, logger),
//	    Journal:  store,
//	}, orchestration.WithRollbackDecider(confirm))
//
//	if !orch.Deploy(ctx, false) {
//	    return orch.Err()
//	}
//	fmt.Println(orch.Summary())
//
// A dry run (Deploy(ctx, true)) builds a Plan and calls no collaborator.
// RecoverRun rolls back a journaled run from another process.
package orchestration
