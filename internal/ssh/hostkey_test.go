package ssh

import (
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/declarative-routeros/rosexec/internal/constants"
)

func knownHostsLine(r *fakeRouter) string {
	return knownhosts.Line([]string{r.addr.String()}, r.hostKey.PublicKey())
}

func TestHostKeyCallback_KnownHostsPath(t *testing.T) {
	unsetEnv(t, constants.EnvKnownHosts)
	unsetEnv(t, constants.EnvSkipHostKeyCheck)
	router := newFakeRouter(t, "admin", "secret")

	path := filepath.Join(t.TempDir(), "known_hosts")
	require.NoError(t, os.WriteFile(path, []byte(knownHostsLine(router)+"\n"), 0600))

	cb, err := HostKeyCallback(router.target("admin"), HostKeyOptions{KnownHostsPath: path})
	require.NoError(t, err)

	remote := net.TCPAddrFromAddrPort(router.addr)
	assert.NoError(t, cb(router.addr.String(), remote, router.hostKey.PublicKey()))

	other, _ := newSigner(t)
	assert.Error(t, cb(router.addr.String(), remote, other.PublicKey()), "changed host key must be rejected")
}

func TestHostKeyCallback_EnvContent(t *testing.T) {
	unsetEnv(t, constants.EnvSkipHostKeyCheck)
	router := newFakeRouter(t, "admin", "secret")
	t.Setenv(constants.EnvKnownHosts, knownHostsLine(router))

	cb, err := HostKeyCallback(router.target("admin"), HostKeyOptions{KnownHostsPath: "/nonexistent"})
	require.NoError(t, err)

	remote := net.TCPAddrFromAddrPort(router.addr)
	assert.NoError(t, cb(router.addr.String(), remote, router.hostKey.PublicKey()))
}

func TestHostKeyCallback_Skip(t *testing.T) {
	unsetEnv(t, constants.EnvKnownHosts)
	target := Target{principal: "admin", endpoint: netip.MustParseAddrPort("10.0.0.1:22")}
	other, _ := newSigner(t)
	remote := net.TCPAddrFromAddrPort(target.Endpoint())

	cb, err := HostKeyCallback(target, HostKeyOptions{Skip: true})
	require.NoError(t, err)
	assert.NoError(t, cb("10.0.0.1:22", remote, other.PublicKey()))

	t.Setenv(constants.EnvSkipHostKeyCheck, "true")
	cb, err = HostKeyCallback(target, HostKeyOptions{})
	require.NoError(t, err)
	assert.NoError(t, cb("10.0.0.1:22", remote, other.PublicKey()))
}

func TestHostKeyCallback_MissingFile(t *testing.T) {
	unsetEnv(t, constants.EnvKnownHosts)
	unsetEnv(t, constants.EnvSkipHostKeyCheck)
	home := t.TempDir()
	t.Setenv("HOME", home)
	target := Target{principal: "admin", endpoint: netip.MustParseAddrPort("10.0.0.1:22")}

	_, err := HostKeyCallback(target, HostKeyOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), constants.KnownHostsPath(home))
	assert.Contains(t, err.Error(), "ssh admin@10.0.0.1")
}
