package ssh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/declarative-routeros/rosexec/internal/security"
)

// Sentinels for errors.Is
var (
	ErrConnectFailed        = errors.New("connect failed")
	ErrHandshakeFailed      = errors.New("handshake failed")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrExecution            = errors.New("command execution failed")
	ErrRemoteCommandFailed  = errors.New("remote command failed")
	ErrSessionClosed        = errors.New("session is closed")
	ErrSessionBusy          = errors.New("session is already running a command")
)

// ConnectErrorKind classifies where Connect gave up
type ConnectErrorKind int

const (
	ConnectFailed ConnectErrorKind = iota + 1
	HandshakeFailed
	AuthenticationFailed
)

func (k ConnectErrorKind) String() string {
	switch k {
	case ConnectFailed:
		return "ConnectFailed"
	case HandshakeFailed:
		return "HandshakeFailed"
	case AuthenticationFailed:
		return "AuthenticationFailed"
	default:
		return fmt.Sprintf("ConnectErrorKind(%d)", int(k))
	}
}

func (k ConnectErrorKind) sentinel() error {
	switch k {
	case ConnectFailed:
		return ErrConnectFailed
	case HandshakeFailed:
		return ErrHandshakeFailed
	default:
		return ErrAuthenticationFailed
	}
}

// ConnectError is returned by Connect. Its message never contains a
// resolved password.
type ConnectError struct {
	Kind   ConnectErrorKind
	Target Target
	// Methods lists the authentication methods that were attempted
	Methods []string
	Err     error

	redactor *security.Redactor
}

func (e *ConnectError) Error() string {
	var msg string
	switch e.Kind {
	case ConnectFailed:
		msg = fmt.Sprintf("failed to connect to %s: %v", e.Target.Endpoint(), e.Err)
	case HandshakeFailed:
		msg = fmt.Sprintf("SSH handshake with %s failed: %v", e.Target.Endpoint(), e.Err)
	default:
		tried := "none"
		if len(e.Methods) > 0 {
			tried = strings.Join(e.Methods, ", ")
		}
		msg = fmt.Sprintf("authentication as %q on %s failed (tried %s): %v",
			e.Target.Principal(), e.Target.Endpoint(), tried, e.Err)
	}
	return e.redactor.Redact(msg)
}

func (e *ConnectError) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

// Exec stages, used in ExecError
const (
	StageOpen     = "open channel"
	StageDispatch = "dispatch"
	StageDrain    = "read output"
	StageWait     = "wait for close"
)

// ExecError is a transport failure while running a command. No partial
// output is kept.
type ExecError struct {
	Stage string
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("command execution failed (%s): %v", e.Stage, e.Err)
}

func (e *ExecError) Unwrap() []error {
	return []error{ErrExecution, e.Err}
}

// CommandFailedError reports a command that ran to completion with a
// non-zero exit status.
type CommandFailedError struct {
	ExitCode int
	Output   string
}

func (e *CommandFailedError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("command failed with exit code %d", e.ExitCode)
	}
	return fmt.Sprintf("command failed with exit code %d: %s", e.ExitCode, out)
}

func (e *CommandFailedError) Unwrap() error {
	return ErrRemoteCommandFailed
}
