// Package testing provides test doubles, builders and helpers shared by
// the phase, orchestration and CLI tests.
//
//   - EnvironmentBuilder: fluent builder for environment descriptors
//   - FakeProvider, FakeSecurityFactory, FakeRegistry: stateful fakes that
//     record every collaborator call in order
//   - Mock*: testify mocks for tests that need exact call expectations
//   - RecordingObserver: captures provisioning events
//
// Usage:
//
//	env := testing.NewEnvironmentBuilder("prod").
//	    WithInstance("node-a").
//	    WithService("monitor", "node-a").
//	    Build()
//
//	fakes := testing.NewFakes()
//	ctx := fakes.Context(t, env)
package testing
