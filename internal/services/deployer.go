package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/imamik/tradefleet/internal/platform/ssh"
	"github.com/imamik/tradefleet/internal/provisioning"
	"github.com/imamik/tradefleet/internal/util/naming"
)

const (
	envDir  = "/etc/tradefleet"
	unitDir = "/etc/systemd/system"
)

// UnitDeployer installs one service kind as a systemd unit running a container.
type UnitDeployer struct {
	def       definition
	cfg       provisioning.ServiceConfig
	image     string
	port      int
	env       []byte
	connector Connector
	logger    *slog.Logger
}

var _ provisioning.ServiceDeployer = (*UnitDeployer)(nil)

// Unit returns the systemd unit name.
func (d *UnitDeployer) Unit() string {
	return naming.ServiceUnit(d.def.kind)
}

// Deploy installs and starts the service on every target address. It
// stops at the first target that fails.
func (d *UnitDeployer) Deploy(ctx context.Context, targets []string) error {
	if len(targets) == 0 {
		return fmt.Errorf("no targets for %s on %s", d.def.kind, d.cfg.Target)
	}
	for _, address := range targets {
		if err := d.deployTo(ctx, address); err != nil {
			return fmt.Errorf("failed to deploy %s to %s (%s): %w", d.def.kind, d.cfg.Target, address, err)
		}
	}
	return nil
}

func (d *UnitDeployer) deployTo(ctx context.Context, address string) (err error) {
	runner, err := d.connector.Connect(address, d.cfg.Access)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := runner.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	unit := d.Unit()
	envPath := path.Join(envDir, d.def.kind+".env")
	unitFile, err := renderUnit(unitParams{
		Kind:      d.def.kind,
		Container: containerName(unit),
		EnvFile:   envPath,
		Image:     d.image,
		Port:      d.port,
		Volumes:   d.def.volumes,
	})
	if err != nil {
		return err
	}

	d.logger.Info("installing service", "kind", d.def.kind, "unit", unit, "address", address)

	if _, err := runner.Execute(ctx, "command -v docker >/dev/null 2>&1 || DEBIAN_FRONTEND=noninteractive apt-get install -y -q docker.io"); err != nil {
		return err
	}
	if err := d.ensureVolumes(ctx, runner); err != nil {
		return err
	}
	if _, err := runner.Execute(ctx, "install -d -m 0750 "+envDir); err != nil {
		return err
	}
	if err := runner.Upload(ctx, envPath, d.env, 0o640); err != nil {
		return err
	}
	if err := runner.Upload(ctx, path.Join(unitDir, unit), unitFile, 0o644); err != nil {
		return err
	}

	quoted := ssh.Quote(unit)
	for _, cmd := range []string{
		"systemctl daemon-reload",
		"systemctl enable " + quoted,
		"systemctl restart " + quoted,
		"systemctl is-active --quiet " + quoted,
	} {
		if _, err := runner.Execute(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (d *UnitDeployer) ensureVolumes(ctx context.Context, runner Runner) error {
	for _, v := range d.def.volumes {
		hostPath, _, _ := strings.Cut(v, ":")
		if _, err := runner.Execute(ctx, "install -d -m 0750 "+ssh.Quote(hostPath)); err != nil {
			return err
		}
	}
	return nil
}
