package ssh

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/declarative-routeros/rosexec/internal/constants"
	"github.com/declarative-routeros/rosexec/internal/logging"
	"github.com/declarative-routeros/rosexec/internal/security"
)

// connectOptions holds the configurable parameters for Connect
type connectOptions struct {
	timeout         time.Duration
	logger          *logrus.Logger
	hostKeyCallback ssh.HostKeyCallback
	hostKeys        HostKeyOptions
	methods         []AuthMethod
	agent           agent.Agent
	keyFiles        []string
	prompter        PasswordPrompter
}

// ConnectOption configures Connect
type ConnectOption func(*connectOptions)

// WithTimeout bounds TCP connect, handshake and authentication. Zero means no bound.
func WithTimeout(d time.Duration) ConnectOption {
	return func(o *connectOptions) {
		o.timeout = d
	}
}

// WithLogger sets the logger used for connection and command events
func WithLogger(l *logrus.Logger) ConnectOption {
	return func(o *connectOptions) {
		o.logger = l
	}
}

// WithHostKeyCallback replaces the known_hosts based verification
func WithHostKeyCallback(cb ssh.HostKeyCallback) ConnectOption {
	return func(o *connectOptions) {
		o.hostKeyCallback = cb
	}
}

// WithHostKeyOptions configures the known_hosts based verification
func WithHostKeyOptions(opts HostKeyOptions) ConnectOption {
	return func(o *connectOptions) {
		o.hostKeys = opts
	}
}

// WithAuthMethods replaces the default authentication chain
func WithAuthMethods(methods ...AuthMethod) ConnectOption {
	return func(o *connectOptions) {
		o.methods = methods
	}
}

// WithAgent uses ag instead of the agent at $SSH_AUTH_SOCK
func WithAgent(ag agent.Agent) ConnectOption {
	return func(o *connectOptions) {
		o.agent = ag
	}
}

// WithKeyFiles offers the given unencrypted key files after the agent keys
func WithKeyFiles(paths ...string) ConnectOption {
	return func(o *connectOptions) {
		o.keyFiles = paths
	}
}

// WithPrompter enables the interactive password prompt
func WithPrompter(p PasswordPrompter) ConnectOption {
	return func(o *connectOptions) {
		o.prompter = p
	}
}

// Session is an authenticated connection to a router. It is owned by a
// single caller and runs at most one command at a time.
type Session struct {
	client *ssh.Client
	target Target
	auth   AuthOutcome
	log    *logrus.Entry

	busy   atomic.Bool
	closed atomic.Bool
}

// Connect dials the router, performs the SSH handshake and authenticates.
// The returned Session must be closed by the caller.
func Connect(ctx context.Context, target Target, opts ...ConnectOption) (*Session, error) {
	o := connectOptions{
		timeout: constants.DefaultTimeout,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if target.IsZero() {
		return nil, fmt.Errorf("invalid target: username and router address are required")
	}

	addr := target.Endpoint().String()
	log := o.logger.WithFields(logging.Fields{
		"user":    target.Principal(),
		"address": addr,
	})

	dialer := net.Dialer{Timeout: o.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.WithError(err).Debug("TCP connect failed")
		return nil, &ConnectError{Kind: ConnectFailed, Target: target, Err: err}
	}

	// Host keys are only needed once the transport is up
	hostKeyCallback := o.hostKeyCallback
	if hostKeyCallback == nil {
		cb, err := HostKeyCallback(target, o.hostKeys)
		if err != nil {
			conn.Close()
			log.WithError(err).Debug("host key verification unavailable")
			return nil, &ConnectError{Kind: HandshakeFailed, Target: target,
				Err: fmt.Errorf("host key verification failed: %w", err)}
		}
		hostKeyCallback = cb
	}

	// Closing the socket is the only way to interrupt the handshake
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if o.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(o.timeout))
	}

	methods := o.methods
	if methods == nil {
		methods = DefaultAuthMethods(AgentAuth{Agent: o.agent, KeyFiles: o.keyFiles}, o.prompter)
	}

	ac := &authContext{log: log, redactor: &security.Redactor{}}
	defer ac.close()

	auths := make([]ssh.AuthMethod, 0, len(methods))
	for _, m := range methods {
		auths = append(auths, m.clientAuth(ac))
	}

	// The host key is checked at the end of key exchange; anything failing
	// after it has been accepted happened during authentication.
	var hostKeyAccepted atomic.Bool
	config := &ssh.ClientConfig{
		User: target.Principal(),
		Auth: auths,
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			if err := hostKeyCallback(hostname, remote, key); err != nil {
				return err
			}
			hostKeyAccepted.Store(true)
			return nil
		},
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.WithError(ctxErr).Debug("connect interrupted")
			return nil, &ConnectError{Kind: ConnectFailed, Target: target, Err: ctxErr}
		}
		if !hostKeyAccepted.Load() {
			log.WithError(err).Debug("SSH handshake failed")
			return nil, &ConnectError{Kind: HandshakeFailed, Target: target, Err: err, redactor: ac.redactor}
		}
		if ac.secretErr != nil {
			err = fmt.Errorf("%w (%v)", err, ac.secretErr)
		}
		outcome := ac.outcome()
		log.WithField("attempted", outcome.Attempted).Debug("authentication failed")
		return nil, &ConnectError{
			Kind:     AuthenticationFailed,
			Target:   target,
			Methods:  outcome.Attempted,
			Err:      err,
			redactor: ac.redactor,
		}
	}

	if !stop() {
		c.Close()
		return nil, &ConnectError{Kind: ConnectFailed, Target: target, Err: ctx.Err()}
	}
	_ = conn.SetDeadline(time.Time{})

	outcome := ac.outcome()
	log.WithField("method", outcome.Method).Infof("Authenticated via %s", outcome.Method)

	return &Session{
		client: ssh.NewClient(c, chans, reqs),
		target: target,
		auth:   outcome,
		log:    log,
	}, nil
}

// Target returns the router this session is connected to
func (s *Session) Target() Target {
	return s.target
}

// Auth reports how the session was authenticated
func (s *Session) Auth() AuthOutcome {
	return s.auth
}

// ServerVersion returns the SSH identification string sent by the router
func (s *Session) ServerVersion() string {
	return string(s.client.ServerVersion())
}

// Close closes the connection. It is safe to call more than once.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.log.Debug("closing session")
	return s.client.Close()
}
