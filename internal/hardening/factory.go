package hardening

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/imamik/tradefleet/internal/platform/ssh"
	"github.com/imamik/tradefleet/internal/provisioning"
)

// bootstrapPort is where sshd listens on a freshly created instance.
const bootstrapPort = 22

// DialFunc opens a runner for an SSH configuration.
type DialFunc func(cfg *ssh.Config) (Runner, error)

// Factory builds configurers that connect as the bootstrap user.
// It implements provisioning.SecurityConfigurerFactory.
type Factory struct {
	// BootstrapUser is the account present on a fresh image.
	BootstrapUser string
	// ConnectTimeout bounds the wait for sshd on a booting instance.
	ConnectTimeout time.Duration

	Logger  *slog.Logger
	Dial    DialFunc
	LoadKey func(path string) ([]byte, error)
}

var _ provisioning.SecurityConfigurerFactory = (*Factory)(nil)

// NewFactory returns a factory dialling real SSH connections.
func NewFactory(connectTimeout time.Duration, logger *slog.Logger) *Factory {
	return &Factory{
		BootstrapUser:  rootUser,
		ConnectTimeout: connectTimeout,
		Logger:         logger,
		Dial: func(cfg *ssh.Config) (Runner, error) {
			return ssh.NewClient(cfg)
		},
		LoadKey: ssh.LoadPrivateKey,
	}
}

// New returns a configurer for target.
func (f *Factory) New(target provisioning.SecurityTarget) (provisioning.SecurityConfigurer, error) {
	if target.Address == "" {
		return nil, fmt.Errorf("no address for %s", target.Instance)
	}
	key, err := f.LoadKey(target.KeyPath)
	if err != nil {
		return nil, err
	}

	user := f.BootstrapUser
	if user == "" {
		user = rootUser
	}
	retryDelay := 2 * time.Second
	maxRetries := 0
	if f.ConnectTimeout > 0 {
		maxRetries = max(1, int(f.ConnectTimeout/retryDelay))
	}

	runner, err := f.Dial(&ssh.Config{
		Host:       target.Address,
		Port:       bootstrapPort,
		User:       user,
		PrivateKey: key,
		Sudo:       user != rootUser,
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target.Instance, err)
	}
	return NewConfigurer(runner, target, f.Logger), nil
}
