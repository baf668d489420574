// Package handlers implements the business logic for CLI commands.
//
// Handlers are called by the command definitions in the commands package.
// Every external collaborator is created through a package-level factory
// variable so tests can replace it.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/hardening"
	"github.com/imamik/tradefleet/internal/logging"
	"github.com/imamik/tradefleet/internal/platform/hcloud"
	"github.com/imamik/tradefleet/internal/platform/s3"
	"github.com/imamik/tradefleet/internal/provider"
	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/provisioning/destroy"
	"github.com/imamik/tradefleet/internal/services"
	"github.com/imamik/tradefleet/internal/storage/journal"
	"github.com/imamik/tradefleet/internal/ui/prompt"
)

// dotEnvFile is loaded, if present, before credentials are read.
const dotEnvFile = ".env"

// journalStore is the run journal as the handlers use it.
// Implemented by internal/storage/journal.Store.
type journalStore interface {
	provisioning.Journal
	Run(runID string) (provisioning.RunInfo, error)
	LatestRun(environment string) (provisioning.RunInfo, error)
	Close() error
}

// reportArchive reads and writes archived run reports.
// Implemented by internal/platform/s3.Archive.
type reportArchive interface {
	Store(ctx context.Context, environment, runID string, report []byte) (string, error)
	Fetch(ctx context.Context, environment, runID string) ([]byte, error)
	Runs(ctx context.Context, environment string) ([]string, error)
}

// Factory function variables - can be replaced in tests.
var (
	// stdout receives command output.
	stdout io.Writer = os.Stdout

	// stderr receives log output.
	stderr io.Writer = os.Stderr

	// findConfigFile locates the default descriptor.
	findConfigFile = config.FindConfigFile

	// loadDotEnv loads .env files into the process environment.
	loadDotEnv = config.LoadDotEnv

	// loadCredentials reads API credentials from the environment.
	loadCredentials = config.LoadCredentials

	// loadTimeouts reads operation timeouts from the environment.
	loadTimeouts = config.LoadTimeouts

	// newInfrastructure creates the provider and the label cleaner on one
	// Hetzner client.
	newInfrastructure = func(creds *config.Credentials, timeouts *config.Timeouts, logger *slog.Logger) (provisioning.InfrastructureProvider, destroy.Cleaner, error) {
		if err := creds.RequireHCloudToken(); err != nil {
			return nil, nil, err
		}
		client := hcloud.NewRealClient(creds.HCloudToken,
			hcloud.WithTimeouts(timeouts),
			hcloud.WithLogger(logger),
		)
		p := provider.NewHetznerProvider(client,
			provider.WithPollInterval(timeouts.ReadyPollInterval),
			provider.WithLogger(logger),
		)
		return p, client, nil
	}

	// newSecurityFactory creates the SSH hardening factory.
	newSecurityFactory = func(timeouts *config.Timeouts, logger *slog.Logger) provisioning.SecurityConfigurerFactory {
		return hardening.NewFactory(timeouts.SSHConnect, logger)
	}

	// newServiceRegistry creates the registry of service deployers.
	newServiceRegistry = func(logger *slog.Logger) provisioning.ServiceRegistry {
		return services.NewRegistry(services.NewConnector(), logger)
	}

	// openJournal opens the run journal at its default location.
	openJournal = func(logger *slog.Logger) (journalStore, error) {
		path, err := journal.DefaultPath()
		if err != nil {
			return nil, err
		}
		return journal.Open(journal.Config{Path: path, SyncWrites: true, Logger: logger})
	}

	// newArchive creates the report archive of an environment.
	newArchive = func(ctx context.Context, cfg *config.ArchiveConfig, creds *config.Credentials) (reportArchive, error) {
		if !creds.HasArchiveKeys() {
			return nil, errors.New("archive credentials are not set (TRADEFLEET_ARCHIVE_ACCESS_KEY, TRADEFLEET_ARCHIVE_SECRET_KEY)")
		}
		client, err := s3.NewClient(ctx, cfg.Endpoint, cfg.Region, creds.ArchiveAccessKey, creds.ArchiveSecretKey)
		if err != nil {
			return nil, err
		}
		return s3.NewArchive(client, cfg.Bucket), nil
	}

	// isInteractive reports whether the terminal can answer questions.
	isInteractive = prompt.IsInteractive

	// confirm asks a yes/no question.
	confirm = prompt.Confirm
)

// resolveConfigPath returns configPath, or the default descriptor found
// from the working directory when it is empty.
func resolveConfigPath(configPath string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	path, err := findConfigFile()
	if err != nil {
		return "", fmt.Errorf("no config file found: %w\nRun 'tradefleet init' to create one", err)
	}
	return path, nil
}

// loadEnvironment loads and validates the descriptor.
func loadEnvironment(configPath string) (*config.Environment, error) {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	env, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return env, nil
}

// prepare loads .env and credentials.
func prepare() (*config.Credentials, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	return loadCredentials()
}

func newLogger(level string) *slog.Logger {
	return logging.NewLogger(stderr, logging.ParseLevel(level))
}

// confirmOrRefuse asks before a destructive action. Without a terminal
// the action must be confirmed up front with --yes.
func confirmOrRefuse(ctx context.Context, assumeYes bool, title, description string) error {
	if assumeYes {
		return nil
	}
	if !isInteractive() {
		return errors.New("refusing to continue without confirmation; pass --yes")
	}
	ok, err := confirm(ctx, title, description)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("aborted")
	}
	return nil
}
