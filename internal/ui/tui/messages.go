// Package tui renders deployment progress and run reports in the terminal.
package tui

import (
	"github.com/imamik/tradefleet/internal/orchestration"
	"github.com/imamik/tradefleet/internal/provisioning"
)

// EventMsg carries one structured deployment event.
type EventMsg struct {
	Event provisioning.Event
}

// LogMsg carries a free-form observer line.
type LogMsg struct {
	Text string
	Warn bool
}

// ConfirmRollbackMsg asks the user whether to roll back a failed run.
// The answer is sent on Reply exactly once.
type ConfirmRollbackMsg struct {
	Failure orchestration.Failure
	Reply   chan<- bool
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the run is over.
type DoneMsg struct {
	Success bool
}
