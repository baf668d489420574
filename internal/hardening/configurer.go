package hardening

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/imamik/tradefleet/internal/platform/ssh"
	"github.com/imamik/tradefleet/internal/provisioning"
)

const rootUser = "root"

// Configurer hardens one host. It implements provisioning.SecurityConfigurer.
type Configurer struct {
	runner Runner
	target provisioning.SecurityTarget
	logger *slog.Logger
}

var _ provisioning.SecurityConfigurer = (*Configurer)(nil)

// NewConfigurer returns a configurer that runs its steps through runner.
func NewConfigurer(runner Runner, target provisioning.SecurityTarget, logger *slog.Logger) *Configurer {
	if logger == nil {
		logger = slog.Default()
	}
	if target.SSHPort == 0 {
		target.SSHPort = 22
	}
	return &Configurer{
		runner: runner,
		target: target,
		logger: logger.With("instance", target.Instance, "address", target.Address),
	}
}

// ApplyBaseHardening upgrades packages, enables unattended upgrades,
// applies kernel sysctls and creates the administrative user.
func (c *Configurer) ApplyBaseHardening(ctx context.Context) error {
	c.logger.Debug("applying base hardening")

	if err := c.run(ctx,
		"DEBIAN_FRONTEND=noninteractive apt-get update -q",
		"DEBIAN_FRONTEND=noninteractive apt-get upgrade -y -q",
		"DEBIAN_FRONTEND=noninteractive apt-get install -y -q unattended-upgrades",
	); err != nil {
		return fmt.Errorf("base hardening: %w", err)
	}

	if err := c.runner.Upload(ctx, upgradesPath, []byte(autoUpgradesConf), 0o644); err != nil {
		return fmt.Errorf("base hardening: %w", err)
	}
	if err := c.runner.Upload(ctx, sysctlPath, []byte(sysctlConf), 0o644); err != nil {
		return fmt.Errorf("base hardening: %w", err)
	}
	if err := c.run(ctx, "sysctl --system"); err != nil {
		return fmt.Errorf("base hardening: %w", err)
	}

	if c.target.SSHUser == "" || c.target.SSHUser == rootUser {
		return nil
	}
	if err := c.ensureAdminUser(ctx); err != nil {
		return fmt.Errorf("base hardening: %w", err)
	}
	return nil
}

// ensureAdminUser creates the SSH user with the root account's authorized
// keys and passwordless sudo.
func (c *Configurer) ensureAdminUser(ctx context.Context) error {
	user := ssh.Quote(c.target.SSHUser)
	home := ssh.Quote("/home/" + c.target.SSHUser)
	if err := c.run(ctx,
		fmt.Sprintf("id -u %s >/dev/null 2>&1 || useradd --create-home --shell /bin/bash %s", user, user),
		fmt.Sprintf("install -d -m 0700 -o %s -g %s %s/.ssh", user, user, home),
		fmt.Sprintf("install -m 0600 -o %s -g %s /root/.ssh/authorized_keys %s/.ssh/authorized_keys", user, user, home),
	); err != nil {
		return err
	}
	sudoers := fmt.Sprintf("%s ALL=(ALL) NOPASSWD:ALL\n", c.target.SSHUser)
	if err := c.runner.Upload(ctx, sudoersPath, []byte(sudoers), 0o440); err != nil {
		return err
	}
	return c.run(ctx, "visudo -c -f "+sudoersPath)
}

// ApplyFirewall configures ufw for the given profile.
func (c *Configurer) ApplyFirewall(ctx context.Context, profile string) error {
	c.logger.Debug("applying firewall", "profile", profile)

	cmds, err := firewallCommands(profile, c.target.SSHPort, c.target.VPNNetwork)
	if err != nil {
		return fmt.Errorf("firewall: %w", err)
	}
	if err := c.run(ctx, cmds...); err != nil {
		return fmt.Errorf("firewall: %w", err)
	}
	return nil
}

// HardenSSH installs an sshd drop-in and reloads sshd after validating
// the configuration.
func (c *Configurer) HardenSSH(ctx context.Context) error {
	c.logger.Debug("hardening sshd", "port", c.target.SSHPort)

	user := c.target.SSHUser
	if user == "" {
		user = rootUser
	}
	conf, err := render(sshdTemplate, sshdParams{
		Port:     c.target.SSHPort,
		User:     user,
		RootUser: user == rootUser,
	})
	if err != nil {
		return fmt.Errorf("ssh lock-down: %w", err)
	}
	if err := c.runner.Upload(ctx, sshdPath, conf, 0o644); err != nil {
		return fmt.Errorf("ssh lock-down: %w", err)
	}
	if err := c.run(ctx, "sshd -t", "systemctl reload ssh || systemctl reload sshd"); err != nil {
		return fmt.Errorf("ssh lock-down: %w", err)
	}
	return nil
}

// InstallIntrusionPrevention installs fail2ban with an sshd jail.
func (c *Configurer) InstallIntrusionPrevention(ctx context.Context) error {
	c.logger.Debug("installing intrusion prevention")

	if err := c.run(ctx, "DEBIAN_FRONTEND=noninteractive apt-get install -y -q fail2ban"); err != nil {
		return fmt.Errorf("intrusion prevention: %w", err)
	}
	jail, err := render(jailTemplate, jailParams{Port: c.target.SSHPort, IgnoreNetwork: c.target.VPNNetwork})
	if err != nil {
		return fmt.Errorf("intrusion prevention: %w", err)
	}
	if err := c.runner.Upload(ctx, jailPath, jail, 0o644); err != nil {
		return fmt.Errorf("intrusion prevention: %w", err)
	}
	if err := c.run(ctx, "systemctl enable fail2ban", "systemctl restart fail2ban"); err != nil {
		return fmt.Errorf("intrusion prevention: %w", err)
	}
	return nil
}

// Close releases the connection.
func (c *Configurer) Close() error {
	return c.runner.Close()
}

func (c *Configurer) run(ctx context.Context, cmds ...string) error {
	for _, cmd := range cmds {
		if _, err := c.runner.Execute(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}
