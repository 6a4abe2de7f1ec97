package ssh

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/declarative-routeros/rosexec/internal/constants"
)

// HostKeyOptions selects how the router's host key is verified
type HostKeyOptions struct {
	// KnownHostsPath overrides ~/.ssh/known_hosts
	KnownHostsPath string
	// Skip disables verification
	Skip bool
}

// HostKeyCallback returns the host key callback for target.
// SECURITY: a known_hosts file is required by default.
// In CI/CD, set ROUTEROS_KNOWN_HOSTS with the content of known_hosts
// or ROUTEROS_SKIP_HOST_KEY_CHECK=true to skip verification (not recommended)
func HostKeyCallback(target Target, opts HostKeyOptions) (ssh.HostKeyCallback, error) {
	if content := os.Getenv(constants.EnvKnownHosts); content != "" {
		// knownhosts.New only reads files
		tmpFile, err := os.CreateTemp("", "known_hosts")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp known_hosts: %w", err)
		}
		defer os.Remove(tmpFile.Name())

		if _, err := tmpFile.WriteString(content); err != nil {
			tmpFile.Close()
			return nil, fmt.Errorf("failed to write temp known_hosts: %w", err)
		}
		tmpFile.Close()

		callback, err := knownhosts.New(tmpFile.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", constants.EnvKnownHosts, err)
		}
		return callback, nil
	}

	if opts.Skip || os.Getenv(constants.EnvSkipHostKeyCheck) == "true" {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	knownHostsPath := opts.KnownHostsPath
	if knownHostsPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		knownHostsPath = constants.KnownHostsPath(homeDir)
	}

	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("SSH known_hosts file not found at %s. "+
			"Please connect to the router manually first with: ssh %s@%s\n"+
			"For CI/CD, set %s or %s=true",
			knownHostsPath, target.Principal(), target.Endpoint().Addr(),
			constants.EnvKnownHosts, constants.EnvSkipHostKeyCheck)
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read known_hosts: %w", err)
	}

	return callback, nil
}
