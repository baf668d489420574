// Package prompt asks yes/no questions on the terminal.
package prompt

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/imamik/tradefleet/internal/orchestration"
)

// confirmFn runs a confirmation form. Tests replace it.
var confirmFn = func(ctx context.Context, title, description string) (bool, error) {
	var answer bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&answer),
		),
	).RunWithContext(ctx)
	return answer, err
}

// interactiveFn reports whether stdin and stdout are terminals. Tests replace it.
var interactiveFn = func() bool {
	return isTerminal(os.Stdin.Fd()) && isTerminal(os.Stdout.Fd())
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsInteractive reports whether questions can be asked.
func IsInteractive() bool {
	return interactiveFn()
}

// Confirm asks a yes/no question. Without a terminal it answers no.
func Confirm(ctx context.Context, title, description string) (bool, error) {
	if !interactiveFn() {
		return false, nil
	}
	answer, err := confirmFn(ctx, title, description)
	if err != nil {
		return false, fmt.Errorf("confirmation canceled: %w", err)
	}
	return answer, nil
}

// RollbackDecider returns a decider that always agrees when assumeYes is
// set and otherwise asks. A run whose context was cancelled is still
// asked, on a context that outlives the cancellation.
func RollbackDecider(assumeYes bool) orchestration.RollbackDecider {
	return func(ctx context.Context, failure orchestration.Failure) bool {
		if assumeYes {
			return true
		}
		title := fmt.Sprintf("Roll back run %s?", failure.RunID)
		if failure.Interrupted {
			title = fmt.Sprintf("Run %s was interrupted. Roll back?", failure.RunID)
		}
		desc := fmt.Sprintf("%v\n%d resources recorded, %d unfinished instances. Hardening and installed services are kept.",
			failure.Err, failure.Recorded, failure.Orphaned)

		answer, err := Confirm(context.WithoutCancel(ctx), title, desc)
		return err == nil && answer
	}
}
