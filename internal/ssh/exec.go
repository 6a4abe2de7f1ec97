package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/declarative-routeros/rosexec/internal/security"
)

// ExecResult holds the result of a command execution
type ExecResult struct {
	Output   string
	Stderr   string
	ExitCode int
}

// Failed reports whether the command exited non-zero
func (r *ExecResult) Failed() bool {
	return r.ExitCode != 0
}

// Err returns a *CommandFailedError for a non-zero exit code, nil otherwise
func (r *ExecResult) Err() error {
	if !r.Failed() {
		return nil
	}
	output := r.Output
	if r.Stderr != "" {
		output += r.Stderr
	}
	return &CommandFailedError{ExitCode: r.ExitCode, Output: output}
}

// Exec runs command on the router and waits for it to finish.
//
// Stdout is read to EOF before the channel close and exit status are
// awaited. A non-zero exit status is not an error here: it is logged and
// reported through the result (see ExecResult.Err).
func (s *Session) Exec(ctx context.Context, command string) (*ExecResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ExecError{Stage: StageOpen, Err: err}
	}
	if s.closed.Load() {
		return nil, &ExecError{Stage: StageOpen, Err: ErrSessionClosed}
	}
	if !s.busy.CompareAndSwap(false, true) {
		return nil, &ExecError{Stage: StageOpen, Err: ErrSessionBusy}
	}
	defer s.busy.Store(false)

	log := s.log.WithField("command", security.SanitizeCommandForLog(command))

	channel, err := s.client.NewSession()
	if err != nil {
		return nil, &ExecError{Stage: StageOpen, Err: err}
	}
	defer channel.Close()

	var stderr bytes.Buffer
	channel.Stderr = &stderr

	stdout, err := channel.StdoutPipe()
	if err != nil {
		return nil, &ExecError{Stage: StageOpen, Err: err}
	}

	stop := context.AfterFunc(ctx, func() { channel.Close() })
	defer stop()

	log.Infof("Running remotely: %s", security.SanitizeCommandForLog(command))
	if err := channel.Start(command); err != nil {
		return nil, &ExecError{Stage: StageDispatch, Err: err}
	}

	output, err := io.ReadAll(stdout)
	if err != nil {
		return nil, &ExecError{Stage: StageDrain, Err: err}
	}

	waitErr := channel.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &ExecError{Stage: StageWait, Err: ctxErr}
	}

	exitCode, err := exitStatus(waitErr)
	if err != nil {
		var missing *ssh.ExitMissingError
		if !errors.As(err, &missing) {
			return nil, &ExecError{Stage: StageWait, Err: err}
		}
		log.Warn("router did not report an exit status, assuming 0")
	}

	result := &ExecResult{
		Output:   string(output),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}

	log.WithField("output", result.Output).Debug("response received")
	log.WithField("exit_code", exitCode).Debugf("Exit code: %d", exitCode)
	if result.Failed() {
		log.WithField("exit_code", exitCode).
			Errorf("Command failed with exit code: %d.\n%s", exitCode, result.Output+result.Stderr)
	}

	return result, nil
}

// exitStatus maps the error from ssh.Session.Wait to an exit code
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return 0, err
}

// ExecWithOutput runs command and returns its trimmed output, or an error
// when the command could not run or exited non-zero
func (s *Session) ExecWithOutput(ctx context.Context, command string) (string, error) {
	result, err := s.Exec(ctx, command)
	if err != nil {
		return "", err
	}

	output := strings.TrimSpace(result.Output)
	if err := result.Err(); err != nil {
		return output, err
	}

	return output, nil
}

// ExecMultiple runs commands in sequence over the same session and stops at
// the first one that fails
func (s *Session) ExecMultiple(ctx context.Context, commands []string) ([]*ExecResult, error) {
	results := make([]*ExecResult, 0, len(commands))
	for _, cmd := range commands {
		result, err := s.Exec(ctx, cmd)
		if err != nil {
			return results, fmt.Errorf("failed to execute '%s': %w", security.SanitizeCommandForLog(cmd), err)
		}
		results = append(results, result)
		if err := result.Err(); err != nil {
			return results, fmt.Errorf("command '%s' failed: %w", security.SanitizeCommandForLog(cmd), err)
		}
	}
	return results, nil
}
