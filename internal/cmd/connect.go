package cmd

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/declarative-routeros/rosexec/internal/config"
	"github.com/declarative-routeros/rosexec/internal/constants"
	"github.com/declarative-routeros/rosexec/internal/ssh"
)

// connectFunc opens the session used by exec; replaced in tests
var connectFunc = func(ctx context.Context, username, address string) (ssh.Executor, error) {
	return ConnectToRouter(ctx, username, address)
}

// ConnectToRouter resolves the router address, validates the user name and
// establishes an authenticated SSH session. The caller must Close it.
func ConnectToRouter(ctx context.Context, username, address string) (*ssh.Session, error) {
	addr, err := ResolveAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	target, err := ssh.NewTarget(username, addr)
	if err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}

	session, err := ssh.Connect(ctx, target, sshOptsFromGlobal(globalCfg, logger, newPrompter())...)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ResolveAddress accepts an IP literal (IPv6 optionally in brackets) or a
// host name, which is resolved to its first address
func ResolveAddress(ctx context.Context, address string) (netip.Addr, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return netip.Addr{}, fmt.Errorf("router address cannot be empty")
	}

	literal := strings.TrimSuffix(strings.TrimPrefix(address, "["), "]")
	if addr, err := netip.ParseAddr(literal); err == nil {
		return addr.Unmap(), nil
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", address)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to resolve router address %q: %w", address, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("router address %q resolved to no addresses", address)
	}
	return addrs[0].Unmap(), nil
}

// sshOptsFromGlobal turns the global config into connect options
func sshOptsFromGlobal(cfg *config.GlobalConfig, l *logrus.Logger, prompter ssh.PasswordPrompter) []ssh.ConnectOption {
	opts := []ssh.ConnectOption{
		ssh.WithTimeout(cfg.Timeout()),
		ssh.WithLogger(l),
		ssh.WithHostKeyOptions(ssh.HostKeyOptions{
			KnownHostsPath: cfg.KnownHosts,
			Skip:           cfg.SkipHostKeyCheck,
		}),
	}

	if cfg.DiscoverKeysEnabled() {
		if home, err := os.UserHomeDir(); err == nil {
			keys, err := ssh.DiscoverSSHKeys(constants.SSHDir(home))
			if err != nil {
				l.WithError(err).Debug("key discovery failed")
			}
			if files := ssh.UsableKeyFiles(keys); len(files) > 0 {
				opts = append(opts, ssh.WithKeyFiles(files...))
			}
		}
	}

	if prompter != nil {
		opts = append(opts, ssh.WithPrompter(prompter))
	}

	return opts
}
