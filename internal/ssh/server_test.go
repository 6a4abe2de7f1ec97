package ssh

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// fakeCommand is what the fake router answers to one exec request
type fakeCommand struct {
	stdout   string
	stderr   string
	exit     uint32
	noStatus bool
}

// fakeRouter is an in-process SSH server that answers exec requests from a
// fixed command table.
type fakeRouter struct {
	addr     netip.AddrPort
	hostKey  ssh.Signer
	user     string
	password string
	keys     []ssh.PublicKey

	mu               sync.Mutex
	commands         map[string]fakeCommand
	passwordAttempts []string
	received         []string
}

func newFakeRouter(t *testing.T, user, password string, keys ...ssh.PublicKey) *fakeRouter {
	t.Helper()

	hostKey, _ := newSigner(t)
	r := &fakeRouter{
		hostKey:  hostKey,
		user:     user,
		password: password,
		keys:     keys,
		commands: make(map[string]fakeCommand),
	}

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if c.User() != r.user {
				return nil, errors.New("unknown user")
			}
			for _, k := range r.keys {
				if bytes.Equal(k.Marshal(), key.Marshal()) {
					return nil, nil
				}
			}
			return nil, errors.New("unknown key")
		},
		PasswordCallback: func(c ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
			r.mu.Lock()
			r.passwordAttempts = append(r.passwordAttempts, string(pw))
			r.mu.Unlock()
			if c.User() == r.user && string(pw) == r.password {
				return nil, nil
			}
			return nil, errors.New("invalid password")
		},
	}
	config.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	r.addr = netip.MustParseAddrPort(ln.Addr().String())

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go r.serve(nc, config)
		}
	}()

	return r
}

func (r *fakeRouter) handle(command string, c fakeCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[command] = c
}

func (r *fakeRouter) passwords() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.passwordAttempts...)
}

func (r *fakeRouter) commandsReceived() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.received...)
}

func (r *fakeRouter) serve(nc net.Conn, config *ssh.ServerConfig) {
	defer nc.Close()
	_, chans, reqs, err := ssh.NewServerConn(nc, config)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for nch := range chans {
		if nch.ChannelType() != "session" {
			nch.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, chReqs, err := nch.Accept()
		if err != nil {
			continue
		}
		go r.session(ch, chReqs)
	}
}

func (r *fakeRouter) session(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()
	for req := range reqs {
		if req.Type != "exec" {
			req.Reply(false, nil)
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			req.Reply(false, nil)
			return
		}
		req.Reply(true, nil)

		r.mu.Lock()
		r.received = append(r.received, payload.Command)
		c, ok := r.commands[payload.Command]
		r.mu.Unlock()
		if !ok {
			c = fakeCommand{stderr: "bad command name\n", exit: 127}
		}

		io.WriteString(ch, c.stdout)
		io.WriteString(ch.Stderr(), c.stderr)
		ch.CloseWrite()
		if !c.noStatus {
			ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{c.exit}))
		}
		return
	}
}

// target returns a Target pointing at the fake router's ephemeral port
func (r *fakeRouter) target(user string) Target {
	return Target{principal: user, endpoint: r.addr}
}

// connect dials the fake router with its host key pinned
func (r *fakeRouter) connect(user string, opts ...ConnectOption) (*Session, error) {
	base := []ConnectOption{WithHostKeyCallback(ssh.FixedHostKey(r.hostKey.PublicKey()))}
	return Connect(context.Background(), r.target(user), append(base, opts...)...)
}

func newSigner(t *testing.T) (ssh.Signer, ed25519.PrivateKey) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer, priv
}

// newAgent returns an in-memory agent holding one fresh key
func newAgent(t *testing.T) (agent.Agent, ssh.PublicKey) {
	t.Helper()
	signer, priv := newSigner(t)
	keyring := agent.NewKeyring()
	require.NoError(t, keyring.Add(agent.AddedKey{PrivateKey: priv, Comment: "test"}))
	return keyring, signer.PublicKey()
}

// fakePrompter stands in for the terminal
type fakePrompter struct {
	password string
	err      error
	prompts  []string
}

func (p *fakePrompter) ReadPassword(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.password, p.err
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

// allLogText flattens every captured entry, fields included
func allLogText(hook *test.Hook) string {
	var buf bytes.Buffer
	for _, e := range hook.AllEntries() {
		fmt.Fprintf(&buf, "%s %v\n", e.Message, e.Data)
	}
	return buf.String()
}

// unsetEnv removes key for the duration of the test
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
