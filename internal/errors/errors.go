package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types for the login backend
var (
	// Startup errors
	ErrConfiguration = errors.New("invalid configuration")

	// OAuth flow errors
	ErrStateMismatch    = errors.New("oauth state mismatch")
	ErrProviderExchange = errors.New("provider code exchange failed")
	ErrProfileFetch     = errors.New("provider profile fetch failed")

	// Session errors. A miss is the normal unauthenticated state, not a server fault.
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Cookie token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ConfigurationError lists the environment values that are missing or invalid.
// The process must refuse to start when one is returned.
type ConfigurationError struct {
	Fields []string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	msg := ErrConfiguration.Error()
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *ConfigurationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Cause}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need only this package
func New(text string) error {
	return errors.New(text)
}
