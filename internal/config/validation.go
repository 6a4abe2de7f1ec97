package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/declarative-routeros/rosexec/internal/logging"
	"github.com/declarative-routeros/rosexec/internal/security"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors holds multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// ValidateGlobalConfig validates the global configuration
func ValidateGlobalConfig(config *GlobalConfig) ValidationErrors {
	var errors ValidationErrors

	if config.Username != "" {
		if err := security.ValidatePrincipal(config.Username); err != nil {
			errors = append(errors, ValidationError{
				Field:   "username",
				Message: err.Error(),
			})
		}
	}

	if config.SSHTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "ssh_timeout",
			Message: "timeout cannot be negative",
		})
	} else if config.SSHTimeout > 3600 {
		errors = append(errors, ValidationError{
			Field:   "ssh_timeout",
			Message: "timeout too large (max 3600 seconds)",
		})
	}

	if config.KnownHosts != "" && config.SkipHostKeyCheck {
		errors = append(errors, ValidationError{
			Field:   "known_hosts",
			Message: "known_hosts and skip_host_key_check are mutually exclusive",
		})
	}

	if config.LogLevel != "" {
		if _, err := logrus.ParseLevel(config.LogLevel); err != nil {
			errors = append(errors, ValidationError{
				Field:   "log_level",
				Message: fmt.Sprintf("unknown level %q", config.LogLevel),
			})
		}
	}

	switch strings.ToLower(config.LogFormat) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		errors = append(errors, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be %s or %s", logging.FormatText, logging.FormatJSON),
		})
	}

	return errors
}
