package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	ServerCreate      time.Duration `env:"HCLOUD_TIMEOUT_SERVER_CREATE" envDefault:"10m"`     // Server creation including the create action
	InstanceReady     time.Duration `env:"TRADEFLEET_TIMEOUT_INSTANCE_READY" envDefault:"5m"` // Overall readiness wait per instance
	ReadyPollInterval time.Duration `env:"TRADEFLEET_READY_POLL_INTERVAL" envDefault:"5s"`    // Fixed interval between readiness checks
	Delete            time.Duration `env:"HCLOUD_TIMEOUT_DELETE" envDefault:"5m"`             // All delete operations
	SSHConnect        time.Duration `env:"TRADEFLEET_TIMEOUT_SSH_CONNECT" envDefault:"3m"`    // Waiting for sshd on a fresh instance
	Rollback          time.Duration `env:"TRADEFLEET_TIMEOUT_ROLLBACK" envDefault:"15m"`      // Whole rollback after an interrupted run
	RetryMaxAttempts  int           `env:"HCLOUD_RETRY_MAX_ATTEMPTS" envDefault:"5"`
	RetryInitialDelay time.Duration `env:"HCLOUD_RETRY_INITIAL_DELAY" envDefault:"1s"`
}

// LoadTimeouts loads timeout configuration from environment variables.
// Unset or unparsable variables fall back to the defaults.
func LoadTimeouts() *Timeouts {
	t, err := env.ParseAs[Timeouts]()
	if err != nil {
		return DefaultTimeouts()
	}
	return &t
}

// DefaultTimeouts returns the defaults without consulting the environment.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		ServerCreate:      10 * time.Minute,
		InstanceReady:     5 * time.Minute,
		ReadyPollInterval: 5 * time.Second,
		Delete:            5 * time.Minute,
		SSHConnect:        3 * time.Minute,
		Rollback:          15 * time.Minute,
		RetryMaxAttempts:  5,
		RetryInitialDelay: 1 * time.Second,
	}
}
