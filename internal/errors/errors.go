package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	// ErrConfig marks a permanent configuration problem: unknown kind,
	// malformed entry or a missing required field. Not retried until the
	// configuration changes.
	ErrConfig = "CONFIG"
	// ErrMeasure marks a transient measurement failure, retried next cycle.
	ErrMeasure = "MEASURE"
	// ErrReload marks a configuration source that couldn't be re-read.
	ErrReload = "RELOAD"
	// ErrOutput marks a failure writing the primary stream. Always fatal.
	ErrOutput = "OUTPUT"
	ErrSSH    = "SSH"
	ErrExec   = "EXEC"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// The rendered form is:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrMeasure code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrMeasure,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// MissingField reports a required configuration key that is absent.
func MissingField(instance, key string) *Error {
	return &Error{
		Code:       ErrConfig,
		Message:    fmt.Sprintf("'%s' is missing required setting '%s'", instance, key),
		Suggestion: fmt.Sprintf("Add '%s:' to the '%s' block in your config.", key, instance),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	// First line: failure symbol + main message
	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	// Include cause if present (why it failed)
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	// Include suggestion if present (how to fix)
	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var bsErr *Error
	if errors.As(err, &bsErr) {
		return bsErr.Code == code
	}
	return false
}

// IsPermanent reports whether a measurement failure will keep failing until
// the instance's configuration changes. Only configuration errors qualify;
// everything else, including timeouts, is retried on the next cycle.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return IsCode(err, ErrConfig)
}

// Brief renders err on a single line for the side-channel log.
func Brief(err error) string {
	if err == nil {
		return ""
	}
	var bsErr *Error
	if !errors.As(err, &bsErr) {
		return err.Error()
	}
	msg := bsErr.Message
	if bsErr.Cause != nil {
		msg += ": " + Brief(bsErr.Cause)
	}
	return msg
}

// Hint returns the suggestion of the outermost structured error in err's
// chain, or "".
func Hint(err error) string {
	var bsErr *Error
	if errors.As(err, &bsErr) {
		return bsErr.Suggestion
	}
	return ""
}
