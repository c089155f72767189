package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a job or workflow id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a status change would move backwards.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTerminal is returned when a write targets a record that already reached a terminal state.
	ErrTerminal = errors.New("record is in a terminal state")
)

// ProviderError wraps a single provider failure. The fallback chain absorbs it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError from a message.
func NewProviderError(provider, format string, args ...interface{}) *ProviderError {
	return &ProviderError{Provider: provider, Err: fmt.Errorf(format, args...)}
}

// PollTimeoutError is returned when a remote run never reached a terminal state within maxWait.
type PollTimeoutError struct {
	RunID     string
	LastState string
	Waited    string
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("run %s did not finish within %s (last state %s)", e.RunID, e.Waited, e.LastState)
}

// RunFailedError is returned when a remote run ended in FAILED, ABORTED or TIMED-OUT.
type RunFailedError struct {
	RunID      string
	State      string
	Diagnostic string
}

func (e *RunFailedError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("run %s ended with state %s", e.RunID, e.State)
	}
	return fmt.Sprintf("run %s ended with state %s: %s", e.RunID, e.State, e.Diagnostic)
}

// OrchestrationError is an environment or programming fault that aborts a job or workflow.
type OrchestrationError struct {
	Op  string
	Err error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

// ValidationError rejects a malformed inbound request before any work is scheduled.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
