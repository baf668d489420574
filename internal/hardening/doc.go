// Package hardening applies the security baseline to fleet instances over SSH.
//
// A Configurer exposes four independent, idempotent steps that the security
// phase runs in order:
//
//   - ApplyBaseHardening: package upgrades, unattended upgrades, kernel
//     sysctls and the administrative user
//   - ApplyFirewall: ufw rules for a firewall profile, restricted to the VPN
//     network when one is configured
//   - HardenSSH: sshd drop-in disabling passwords and root login
//   - InstallIntrusionPrevention: fail2ban with an sshd jail
//
// Every step can be re-run on an already hardened host.
package hardening
