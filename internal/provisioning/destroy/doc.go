// Package destroy tears down everything labelled for an environment,
// including instances and stable addresses that no run state knows about.
package destroy
