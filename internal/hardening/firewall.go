package hardening

import (
	"fmt"
	"slices"
	"strconv"
)

// Firewall profile names.
const (
	ProfileDefault    = "default"
	ProfileTrading    = "trading"
	ProfileMonitoring = "monitoring"
)

// Port is an inbound port opened by a firewall profile.
type Port struct {
	Number   int
	Protocol string
	Comment  string
}

// profiles lists the inbound service ports of each profile. SSH is always
// allowed in addition.
var profiles = map[string][]Port{
	ProfileDefault: nil,
	// Trading hosts only talk outbound to exchanges; the local API is
	// reachable for the operator.
	ProfileTrading: {
		{Number: 8080, Protocol: "tcp", Comment: "collector api"},
		{Number: 8081, Protocol: "tcp", Comment: "bot api"},
		{Number: 9100, Protocol: "tcp", Comment: "node exporter"},
	},
	ProfileMonitoring: {
		{Number: 3000, Protocol: "tcp", Comment: "grafana"},
		{Number: 9090, Protocol: "tcp", Comment: "prometheus"},
		{Number: 9100, Protocol: "tcp", Comment: "node exporter"},
	},
}

// Profiles returns the known profile names, sorted.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// firewallCommands returns the ufw commands for a profile. When vpnNetwork
// is set, SSH and service ports only accept traffic from it.
func firewallCommands(profile string, sshPort int, vpnNetwork string) ([]string, error) {
	ports, ok := profiles[profile]
	if !ok {
		return nil, fmt.Errorf("unknown firewall profile %q (known: %v)", profile, Profiles())
	}

	cmds := []string{
		"DEBIAN_FRONTEND=noninteractive apt-get install -y -q ufw",
		"ufw --force reset",
		"ufw default deny incoming",
		"ufw default allow outgoing",
	}

	allow := func(port int, proto, comment string) string {
		if vpnNetwork != "" {
			return fmt.Sprintf("ufw allow from %s to any port %d proto %s comment '%s'", vpnNetwork, port, proto, comment)
		}
		return fmt.Sprintf("ufw allow %s/%s comment '%s'", strconv.Itoa(port), proto, comment)
	}

	cmds = append(cmds, allow(sshPort, "tcp", "ssh"))
	for _, p := range ports {
		cmds = append(cmds, allow(p.Number, p.Protocol, p.Comment))
	}
	return append(cmds, "ufw --force enable"), nil
}
