package services

import (
	"context"
	"io/fs"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/platform/ssh"
)

const rootUser = "root"

// Runner executes commands and writes files on one host.
// Implemented by internal/platform/ssh.Client.
type Runner interface {
	Execute(ctx context.Context, command string) (string, error)
	Upload(ctx context.Context, remotePath string, content []byte, mode fs.FileMode) error
	Close() error
}

// Connector opens runners to instances.
type Connector struct {
	Dial    func(cfg *ssh.Config) (Runner, error)
	LoadKey func(path string) ([]byte, error)
}

// NewConnector returns a connector dialling real SSH connections.
func NewConnector() Connector {
	return Connector{
		Dial: func(cfg *ssh.Config) (Runner, error) {
			return ssh.NewClient(cfg)
		},
		LoadKey: ssh.LoadPrivateKey,
	}
}

// Connect opens a runner to address with the given access parameters.
// Non-root users run commands through sudo.
func (c Connector) Connect(address string, access config.SSHConfig) (Runner, error) {
	access = access.WithDefaults()
	key, err := c.LoadKey(access.KeyPath)
	if err != nil {
		return nil, err
	}
	return c.Dial(&ssh.Config{
		Host:       address,
		Port:       access.Port,
		User:       access.User,
		PrivateKey: key,
		Sudo:       access.User != rootUser,
	})
}
