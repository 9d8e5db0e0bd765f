// Package apperrors provides domain-specific error types for the shipmate application.
// Every failure the bot can hit maps to exactly one of these types, so callers
// can decide between "tell the user" and "log for the operator" by type alone.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// InvalidIdentifierError reports a container identifier that failed the
// allowed-character check. It is raised before any remote call is made and is
// never retried.
type InvalidIdentifierError struct {
	ID string // The rejected identifier
}

// Error implements the error interface for InvalidIdentifierError.
func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid container identifier %q", e.ID)
}

// ExecutionError represents a transport-level failure reaching the remote
// host: connection refused, authentication failure, broken session. The remote
// command never ran (or its outcome is unknown), which distinguishes this from
// RemoteCommandError.
type ExecutionError struct {
	Host string // Target host ("local" for the in-process runner)
	Op   string // Command that was being executed
	Err  error  // Underlying transport error
}

// Error implements the error interface for ExecutionError.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of %q on %s failed: %v", e.Op, e.Host, e.Err)
}

// Unwrap returns the underlying error for error wrapping chains.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that a remote command exceeded the configured bound and
// was cancelled. The in-flight operation is torn down before this is returned;
// a caller never waits past Limit.
type TimeoutError struct {
	Host  string
	Op    string
	Limit time.Duration
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution of %q on %s timed out after %s", e.Op, e.Host, e.Limit)
}

// RemoteCommandError means the command ran on the remote host but exited
// non-zero. Stderr is carried because it is actionable for the user
// (e.g. "no such container").
type RemoteCommandError struct {
	Op       string
	ExitCode int
	Stderr   string
}

// Error implements the error interface for RemoteCommandError.
func (e *RemoteCommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("remote command %q exited with status %d: %s", e.Op, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("remote command %q exited with status %d", e.Op, e.ExitCode)
}

// EmptyResultError is the ambiguous zero-output case: the remote command
// failed and produced nothing on either stream. Distinct from a legitimately
// empty listing, which is a zero-length success.
type EmptyResultError struct {
	Op string
}

// Error implements the error interface for EmptyResultError.
func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("remote command %q failed without producing output", e.Op)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
