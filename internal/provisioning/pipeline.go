package provisioning

import (
	"fmt"
	"time"
)

// PhaseTiming records how long a phase took.
type PhaseTiming struct {
	Phase    string
	Duration time.Duration
	Err      error
}

// RunPhases executes phases sequentially, stopping at the first failure.
// Cancellation of ctx is checked before each phase; a cancelled run
// returns an error wrapping ErrInterrupted. The timings of every phase that
// started are returned.
func RunPhases(ctx *Context, phases []Phase) ([]PhaseTiming, error) {
	start := time.Now()
	timings := make([]PhaseTiming, 0, len(phases))
	ctx.Observer.Printf("Starting deployment with %d phases...", len(phases))

	for i, phase := range phases {
		if err := ctx.Err(); err != nil {
			ctx.Observer.Printf("Interrupted before %s phase", phase.Name())
			return timings, fmt.Errorf("%w before %s phase: %w", ErrInterrupted, phase.Name(), err)
		}

		phaseStart := time.Now()
		name := fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(phases))
		LogPhaseStart(ctx.Observer, name)

		err := phase.Provision(ctx)
		elapsed := time.Since(phaseStart)
		timings = append(timings, PhaseTiming{Phase: phase.Name(), Duration: elapsed, Err: err})
		ctx.Metrics.ObservePhase(phase.Name(), elapsed, err)

		if err != nil {
			LogPhaseFailed(ctx.Observer, name, err)
			return timings, fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		LogPhaseComplete(ctx.Observer, name, elapsed)
	}

	ctx.Observer.Printf("Deployment completed in %v", time.Since(start).Round(time.Millisecond))
	return timings, nil
}
