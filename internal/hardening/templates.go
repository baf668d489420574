package hardening

import (
	"bytes"
	"fmt"
	"text/template"
)

const (
	sysctlPath   = "/etc/sysctl.d/90-tradefleet.conf"
	upgradesPath = "/etc/apt/apt.conf.d/20auto-upgrades"
	sudoersPath  = "/etc/sudoers.d/90-tradefleet"
	sshdPath     = "/etc/ssh/sshd_config.d/90-tradefleet.conf"
	jailPath     = "/etc/fail2ban/jail.d/tradefleet.local"
)

const sysctlConf = `net.ipv4.conf.all.rp_filter = 1
net.ipv4.conf.default.rp_filter = 1
net.ipv4.conf.all.accept_redirects = 0
net.ipv4.conf.all.send_redirects = 0
net.ipv4.conf.all.accept_source_route = 0
net.ipv4.tcp_syncookies = 1
net.ipv4.icmp_echo_ignore_broadcasts = 1
kernel.kptr_restrict = 2
kernel.dmesg_restrict = 1
`

const autoUpgradesConf = `APT::Periodic::Update-Package-Lists "1";
APT::Periodic::Unattended-Upgrade "1";
`

var sshdTemplate = template.Must(template.New("sshd").Parse(`Port {{ .Port }}
PermitRootLogin {{ if .RootUser }}prohibit-password{{ else }}no{{ end }}
PasswordAuthentication no
KbdInteractiveAuthentication no
PubkeyAuthentication yes
MaxAuthTries 3
LoginGraceTime 30
X11Forwarding no
AllowUsers {{ .User }}
`))

var jailTemplate = template.Must(template.New("jail").Parse(`[DEFAULT]
bantime = 1h
findtime = 10m
maxretry = 5
{{- if .IgnoreNetwork }}
ignoreip = 127.0.0.1/8 ::1 {{ .IgnoreNetwork }}
{{- end }}

[sshd]
enabled = true
port = {{ .Port }}
backend = systemd
`))

type sshdParams struct {
	Port     int
	User     string
	RootUser bool
}

type jailParams struct {
	Port          int
	IgnoreNetwork string
}

func render(tmpl *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}
