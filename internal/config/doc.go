// Package config defines the environment descriptor that drives one
// deployment run, together with its loader and validation.
//
// An [Environment] is loaded from YAML, validated once, and then treated
// as immutable: the orchestrator never reads files, environment variables
// or flags itself. Runtime settings that are not part of the descriptor
// (API token, timeouts, archive credentials) come from the process
// environment via [LoadTimeouts] and [LoadCredentials].
package config
