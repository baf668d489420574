// Package wizard asks for the essentials of an environment descriptor
// in an interactive form and turns the answers into a config.Environment.
//
// RunWizard collects a Result; Result.ToEnvironment builds the
// descriptor, which config.Save writes as tradefleet.yaml.
package wizard
