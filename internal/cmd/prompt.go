package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/declarative-routeros/rosexec/internal/ssh"
)

// TerminalPrompter asks the operator for a password. Input is not echoed
// when In is a terminal; otherwise a single line is read (piped stdin).
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// ReadPassword implements ssh.PasswordPrompter
func (p TerminalPrompter) ReadPassword(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)

	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.Out) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// newPrompter returns the prompter for this invocation, or nil when
// prompting is disabled
func newPrompter() ssh.PasswordPrompter {
	if !IsInteractive() {
		return nil
	}
	return TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// IsInteractive returns true unless --non-interactive is set
func IsInteractive() bool {
	return !nonInteractive
}
