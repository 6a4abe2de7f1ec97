package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/declarative-routeros/rosexec/internal/constants"
	"github.com/declarative-routeros/rosexec/internal/security"
)

// Authentication method names, as reported in AuthOutcome
const (
	MethodNone     = "none"
	MethodAgent    = "agent"
	MethodPassword = "password"
)

// AuthMethod is one entry of the ordered authentication chain. The chain is
// walked in order and a later method is only tried when every earlier one
// was refused. The variants are AgentAuth and PasswordAuth.
type AuthMethod interface {
	Name() string
	clientAuth(ac *authContext) ssh.AuthMethod
}

// AuthOutcome records how a session was authenticated
type AuthOutcome struct {
	// Method is the method the server accepted
	Method string
	// Attempted lists every method that was tried, in order
	Attempted []string
}

// authContext carries per-connection state through the auth callbacks.
// It lives only for the duration of Connect.
type authContext struct {
	log       *logrus.Entry
	redactor  *security.Redactor
	attempted []string
	secretErr error
	cleanup   []func()
}

func (ac *authContext) attempt(name string) {
	ac.attempted = append(ac.attempted, name)
}

func (ac *authContext) outcome() AuthOutcome {
	method := MethodNone
	if n := len(ac.attempted); n > 0 {
		method = ac.attempted[n-1]
	}
	return AuthOutcome{Method: method, Attempted: append([]string(nil), ac.attempted...)}
}

func (ac *authContext) close() {
	for _, fn := range ac.cleanup {
		fn()
	}
	ac.cleanup = nil
}

// AgentAuth authenticates with identities already available to the process:
// keys held by the SSH agent, then unencrypted key files. No secret is read.
type AgentAuth struct {
	// Agent overrides the agent reached through SocketPath
	Agent agent.Agent
	// SocketPath defaults to $SSH_AUTH_SOCK
	SocketPath string
	// KeyFiles are unencrypted private keys offered after the agent keys
	KeyFiles []string
}

func (AgentAuth) Name() string { return MethodAgent }

func (a AgentAuth) clientAuth(ac *authContext) ssh.AuthMethod {
	return ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
		ac.attempt(MethodAgent)

		var signers []ssh.Signer
		if ag := a.agent(ac); ag != nil {
			agentSigners, err := ag.Signers()
			if err != nil {
				ac.log.WithError(err).Debug("SSH agent did not list keys")
			}
			signers = append(signers, agentSigners...)
		}

		fileSigners, errs := loadKeySigners(a.KeyFiles)
		for _, err := range errs {
			ac.log.WithError(err).Debug("skipping key file")
		}
		signers = append(signers, fileSigners...)

		ac.log.WithField("keys", len(signers)).Debug("offering ambient identities")
		return signers, nil
	})
}

// agent returns the configured agent or dials the agent socket. A missing
// agent is not an error: stage 1 then simply has nothing to offer.
func (a AgentAuth) agent(ac *authContext) agent.Agent {
	if a.Agent != nil {
		return a.Agent
	}

	socket := a.SocketPath
	if socket == "" {
		socket = os.Getenv(constants.EnvAuthSock)
	}
	if socket == "" {
		ac.log.Debug("no SSH agent available")
		return nil
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		ac.log.WithError(err).Debug("failed to reach SSH agent")
		return nil
	}
	ac.cleanup = append(ac.cleanup, func() { conn.Close() })
	return agent.NewClient(conn)
}

// PasswordAuth authenticates with a password taken from the first source
// that has one. The password is tried exactly once.
type PasswordAuth struct {
	Sources []SecretSource
}

func (PasswordAuth) Name() string { return MethodPassword }

func (p PasswordAuth) clientAuth(ac *authContext) ssh.AuthMethod {
	return ssh.PasswordCallback(func() (string, error) {
		if len(ac.attempted) > 0 && ac.attempted[len(ac.attempted)-1] == MethodAgent {
			ac.log.Debug("SSH agent auth failed, falling back to password")
		}
		ac.attempt(MethodPassword)

		secret, source, err := resolveSecret(p.Sources)
		if err != nil {
			ac.secretErr = err
			return "", err
		}
		ac.redactor.Add(secret)
		ac.log.WithField("source", source).Debug("password resolved")
		return secret, nil
	})
}

// ErrNoSecret is returned when no secret source produced a password
var ErrNoSecret = errors.New("no password available")

// resolveSecret returns the secret of the first source that has one
func resolveSecret(sources []SecretSource) (string, string, error) {
	for _, src := range sources {
		secret, ok, err := src.Lookup()
		if err != nil {
			return "", src.Kind(), fmt.Errorf("failed to read password from %s: %w", src.Kind(), err)
		}
		if ok {
			return secret, src.Kind(), nil
		}
	}
	return "", "", ErrNoSecret
}

// SecretSource yields a password, or reports that it has none
type SecretSource interface {
	Kind() string
	Lookup() (secret string, ok bool, err error)
}

// EnvSecret reads the password from an environment variable. A variable that
// is set but empty still counts: RouterOS ships with an empty admin password.
type EnvSecret struct {
	Var string
}

func (e EnvSecret) Kind() string { return "env:" + e.Var }

func (e EnvSecret) Lookup() (string, bool, error) {
	v, ok := os.LookupEnv(e.Var)
	return v, ok, nil
}

// PasswordPrompter reads a password from the operator without echo
type PasswordPrompter interface {
	ReadPassword(prompt string) (string, error)
}

// PromptSecret asks the operator. Without a Prompter it has nothing to offer.
type PromptSecret struct {
	Prompt   string
	Prompter PasswordPrompter
}

func (p PromptSecret) Kind() string { return "prompt" }

func (p PromptSecret) Lookup() (string, bool, error) {
	if p.Prompter == nil {
		return "", false, nil
	}
	secret, err := p.Prompter.ReadPassword(p.Prompt)
	if err != nil {
		return "", false, err
	}
	return secret, true, nil
}

// DefaultAuthMethods returns the standard chain: ambient identities, then the
// ROUTEROS_SSH_PASSWORD variable, then the "Password: " prompt.
func DefaultAuthMethods(ambient AgentAuth, prompter PasswordPrompter) []AuthMethod {
	return []AuthMethod{
		ambient,
		PasswordAuth{Sources: []SecretSource{
			EnvSecret{Var: constants.EnvPassword},
			PromptSecret{Prompt: constants.PasswordPrompt, Prompter: prompter},
		}},
	}
}
