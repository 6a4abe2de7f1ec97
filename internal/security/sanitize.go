package security

import (
	"fmt"
	"regexp"
	"strings"
)

const mask = "****"

var (
	// principalRegex validates RouterOS user names
	// Allows any printable, non-space character
	// Length: 1-64 characters
	principalRegex = regexp.MustCompile(`^[[:graph:]]{1,64}$`)

	// sensitiveLogPatterns used by SanitizeCommandForLog to mask secrets
	// passed as RouterOS command arguments
	sensitiveLogPatterns = []string{
		"password=",
		"secret=",
		"passphrase=",
		"pre-shared-key=",
		"authentication-key=",
		"private-key=",
	}
)

// ValidatePrincipal validates the user name used to log in to the router
func ValidatePrincipal(name string) error {
	if name == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("username too long (max 64 characters)")
	}
	if !principalRegex.MatchString(name) {
		return fmt.Errorf("username must not contain whitespace or control characters")
	}
	return nil
}

// ValidateCommand checks that a remote command is present.
// The command content itself is passed to the router verbatim.
func ValidateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("command cannot be empty")
	}
	if strings.ContainsRune(command, 0) {
		return fmt.Errorf("command cannot contain NUL bytes")
	}
	return nil
}

// SanitizeCommandForLog masks sensitive values in commands before logging.
// This prevents secrets from leaking into verbose output or log files.
func SanitizeCommandForLog(cmd string) string {
	result := cmd

	for _, pattern := range sensitiveLogPatterns {
		searchFrom := 0
		for {
			idx := strings.Index(result[searchFrom:], pattern)
			if idx == -1 {
				break
			}
			absIdx := searchFrom + idx
			valueStart := absIdx + len(pattern)
			valueEnd := findValueEnd(result, valueStart)
			result = result[:valueStart] + mask + result[valueEnd:]
			// Advance past the replacement to avoid infinite loop
			searchFrom = valueStart + len(mask)
		}
	}

	return result
}

// findValueEnd finds where an argument value ends (handles quoted and unquoted values)
func findValueEnd(s string, start int) int {
	if start >= len(s) {
		return start
	}

	if s[start] == '"' {
		end := strings.Index(s[start+1:], "\"")
		if end == -1 {
			return len(s)
		}
		return start + end + 2
	}

	if s[start] == '\'' {
		end := strings.Index(s[start+1:], "'")
		if end == -1 {
			return len(s)
		}
		return start + end + 2
	}

	for i := start; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == ';' {
			return i
		}
	}
	return len(s)
}

// Redactor replaces known secret values in arbitrary text.
// The zero value redacts nothing.
type Redactor struct {
	secrets []string
}

// Add registers a secret. Empty secrets are ignored since they would match everywhere.
func (r *Redactor) Add(secret string) {
	if secret == "" {
		return
	}
	for _, s := range r.secrets {
		if s == secret {
			return
		}
	}
	r.secrets = append(r.secrets, secret)
}

// Redact returns s with every registered secret masked.
func (r *Redactor) Redact(s string) string {
	if r == nil {
		return s
	}
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, mask)
	}
	return s
}
