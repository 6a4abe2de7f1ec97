package constants

import (
	"path/filepath"
	"time"
)

// Environment variables read by rosexec
const (
	EnvPassword         = "ROUTEROS_SSH_PASSWORD"
	EnvKnownHosts       = "ROUTEROS_KNOWN_HOSTS"
	EnvSkipHostKeyCheck = "ROUTEROS_SKIP_HOST_KEY_CHECK"
	EnvAuthSock         = "SSH_AUTH_SOCK"
)

// Connection defaults
const (
	DefaultPort    = 22
	DefaultTimeout = 30 * time.Second
	PasswordPrompt = "Password: "
)

// Global config location, relative to the user config dir
const (
	ConfigDirName  = "rosexec"
	ConfigFileName = "config.yaml"
)

// SSHDir returns the ~/.ssh directory for the given home directory.
func SSHDir(home string) string {
	return filepath.Join(home, ".ssh")
}

// KnownHostsPath returns the default known_hosts file for the given home directory.
func KnownHostsPath(home string) string {
	return filepath.Join(SSHDir(home), "known_hosts")
}

// ConfigPath returns the global config file inside the given config directory.
func ConfigPath(configDir string) string {
	return filepath.Join(configDir, ConfigDirName, ConfigFileName)
}
