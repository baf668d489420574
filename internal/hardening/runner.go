package hardening

import (
	"context"
	"io/fs"
)

// Runner executes commands and writes files on one host.
// Implemented by internal/platform/ssh.Client.
type Runner interface {
	Execute(ctx context.Context, command string) (string, error)
	Upload(ctx context.Context, remotePath string, content []byte, mode fs.FileMode) error
	Close() error
}
