package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/logging"
	"github.com/imamik/tradefleet/internal/orchestration"
	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/ui/prompt"
	"github.com/imamik/tradefleet/internal/ui/tui"
)

// DeployOptions are the flags of the deploy command.
type DeployOptions struct {
	ConfigPath  string
	DryRun      bool
	Yes         bool // Roll back a failed run without asking
	NoTUI       bool
	JSON        bool // Print the plan or summary as JSON
	MetricsFile string
	LogLevel    string
}

// runDeployTUI runs a deployment behind the progress view. Tests replace it.
var runDeployTUI = func(ctx context.Context, env *config.Environment, runID string, deploy tui.DeployFunc, fallback orchestration.RollbackDecider) (bool, error) {
	return tui.RunDeployTUI(ctx, tui.NewDeployModel(env.Name, env.Region, runID), deploy, fallback, tea.WithAltScreen())
}

// Deploy runs the infrastructure, security and services phases for the
// environment descriptor. A dry run prints the plan and changes nothing.
func Deploy(ctx context.Context, opts DeployOptions) error {
	env, err := loadEnvironment(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.DryRun {
		return printPlan(ctx, env, opts.JSON, opts.LogLevel)
	}

	creds, err := prepare()
	if err != nil {
		return err
	}
	timeouts := loadTimeouts()
	useTUI := !opts.NoTUI && !opts.JSON && isInteractive()

	// The progress view owns the terminal, so component logs are dropped.
	logger := newLogger(opts.LogLevel)
	if useTUI {
		logger = logging.Discard()
	}

	deps, closeDeps, err := newDependencies(ctx, env, creds, timeouts, logger)
	if err != nil {
		return err
	}
	defer closeDeps()

	runID := uuid.NewString()
	newOrchestrator := func(observer provisioning.Observer, decider orchestration.RollbackDecider) *orchestration.Orchestrator {
		return orchestration.New(env, deps,
			orchestration.WithRunID(runID),
			orchestration.WithObserver(observer),
			orchestration.WithTimeouts(timeouts),
			orchestration.WithRollbackDecider(decider),
		)
	}
	decider := prompt.RollbackDecider(opts.Yes)

	var o *orchestration.Orchestrator
	var ok bool
	if useTUI {
		ok, err = runDeployTUI(ctx, env, runID,
			func(ctx context.Context, observer provisioning.Observer, decide orchestration.RollbackDecider) bool {
				if opts.Yes {
					decide = decider
				}
				o = newOrchestrator(observer, decide)
				return o.Deploy(ctx, false)
			},
			decider,
		)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("deployment of %s did not start", env.Name)
		}
	} else {
		o = newOrchestrator(provisioning.NewSlogObserver(logger), decider)
		ok = o.Deploy(ctx, false)
	}

	if err := writeSummary(stdout, o.Summary(), opts.JSON); err != nil {
		return err
	}
	if opts.MetricsFile != "" {
		if err := deps.Metrics.WriteTextfile(opts.MetricsFile); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}

	if !ok {
		return fmt.Errorf("deployment of %s failed: %w", env.Name, o.Err())
	}
	return nil
}

// newDependencies creates the collaborators of a real run. The returned
// function closes the journal.
func newDependencies(
	ctx context.Context,
	env *config.Environment,
	creds *config.Credentials,
	timeouts *config.Timeouts,
	logger *slog.Logger,
) (orchestration.Dependencies, func(), error) {
	infra, _, err := newInfrastructure(creds, timeouts, logger)
	if err != nil {
		return orchestration.Dependencies{}, nil, err
	}

	store, err := openJournal(logger)
	if err != nil {
		return orchestration.Dependencies{}, nil, err
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close journal", "error", err)
		}
	}

	deps := orchestration.Dependencies{
		Provider: infra,
		Security: newSecurityFactory(timeouts, logger),
		Services: newServiceRegistry(logger),
		Journal:  store,
		Metrics:  provisioning.NewMetrics(env.Name),
	}

	if env.Archive != nil {
		archive, err := newArchive(ctx, env.Archive, creds)
		if err != nil {
			logger.Warn("run reports will not be archived", "error", err)
		} else {
			deps.Archive = archive
		}
	}
	return deps, closeFn, nil
}

func writeSummary(w io.Writer, summary *orchestration.Summary, asJSON bool) error {
	if summary == nil {
		return nil
	}
	if asJSON {
		data, err := summary.JSON()
		if err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprint(w, tui.RenderSummary(summary))
	return err
}
