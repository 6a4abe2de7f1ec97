package config

import (
	"time"

	"github.com/declarative-routeros/rosexec/internal/constants"
)

// GlobalConfig represents the global ~/.config/rosexec/config.yaml.
// It is only ever read; rosexec never writes it.
type GlobalConfig struct {
	// Username is used when --username is not given
	Username string `yaml:"username,omitempty"`
	// SSHTimeout bounds TCP connect and SSH handshake, in seconds (0 = default)
	SSHTimeout int `yaml:"ssh_timeout,omitempty"`
	// KnownHosts overrides ~/.ssh/known_hosts
	KnownHosts       string `yaml:"known_hosts,omitempty"`
	SkipHostKeyCheck bool   `yaml:"skip_host_key_check,omitempty"`
	// DiscoverKeys offers unencrypted keys from ~/.ssh alongside agent keys (default true)
	DiscoverKeys *bool  `yaml:"discover_keys,omitempty"`
	LogLevel     string `yaml:"log_level,omitempty"`
	LogFormat    string `yaml:"log_format,omitempty"`
}

// DefaultGlobalConfig returns the configuration used when no file exists
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{}
}

// Timeout returns the connect/handshake timeout
func (c *GlobalConfig) Timeout() time.Duration {
	if c.SSHTimeout > 0 {
		return time.Duration(c.SSHTimeout) * time.Second
	}
	return constants.DefaultTimeout
}

// DiscoverKeysEnabled reports whether default key files should be offered
func (c *GlobalConfig) DiscoverKeysEnabled() bool {
	return c.DiscoverKeys == nil || *c.DiscoverKeys
}
