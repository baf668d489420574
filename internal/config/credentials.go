package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Credentials holds secrets that never live in the descriptor.
type Credentials struct {
	HCloudToken string `env:"HCLOUD_TOKEN"`

	ArchiveAccessKey string `env:"TRADEFLEET_ARCHIVE_ACCESS_KEY"`
	ArchiveSecretKey string `env:"TRADEFLEET_ARCHIVE_SECRET_KEY"`
}

// LoadCredentials reads credentials from the environment.
func LoadCredentials() (*Credentials, error) {
	creds, err := env.ParseAs[Credentials]()
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from environment: %w", err)
	}
	return &creds, nil
}

// RequireHCloudToken returns an error when no API token is configured.
func (c *Credentials) RequireHCloudToken() error {
	if c.HCloudToken == "" {
		return errors.New("HCLOUD_TOKEN is not set (export it or put it in a .env file)")
	}
	return nil
}

// HasArchiveKeys reports whether archive credentials are configured.
func (c *Credentials) HasArchiveKeys() bool {
	return c.ArchiveAccessKey != "" && c.ArchiveSecretKey != ""
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
