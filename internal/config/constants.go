package config

// Defaults applied to SSH access when the descriptor leaves them empty.
const (
	DefaultSSHPort    = 22
	DefaultSSHUser    = "root"
	DefaultSSHKeyPath = "~/.ssh/id_ed25519"
)

// DefaultConfigFilename is the descriptor looked up when no path is given.
const DefaultConfigFilename = "tradefleet.yaml"
