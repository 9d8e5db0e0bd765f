// Package executor runs command lines against the target host and reports
// structured outcomes.
//
// Two transports are provided: Local runs the command as a child process,
// SSH runs it on a remote host. Both honour the same contract: arguments are
// passed as a discrete list, a non-zero exit is a Result rather than an
// error, transport faults come back as *apperrors.ExecutionError, and every
// call is bounded by the configured timeout, yielding *apperrors.TimeoutError
// when exceeded. Callers are never blocked past that bound.
package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	apperrors "github.com/mkravets/shipmate/internal/errors"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single command execution when no explicit timeout
// is configured.
const DefaultTimeout = 30 * time.Second

// Result is the outcome of one command execution. Immutable once produced;
// owned by the caller that requested it.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
}

// Success reports whether the command exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes a command with discrete arguments against a fixed target
// host. Implementations must support concurrent outstanding calls: one slow
// command must not stall unrelated ones.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (Result, error)
}

// Local runs commands as child processes on the host shipmate itself runs on.
type Local struct {
	timeout time.Duration
	log     *zap.Logger
}

// Compile-time verification that Local implements Runner
var _ Runner = (*Local)(nil)

// NewLocal returns a Local runner. A non-positive timeout falls back to
// DefaultTimeout.
func NewLocal(timeout time.Duration, log *zap.Logger) *Local {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{timeout: timeout, log: log}
}

// Run executes name with args as a child process. Arguments are never joined
// into a shell string, so identifier content cannot be reinterpreted by a
// shell.
func (l *Local) Run(ctx context.Context, name string, args []string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	// Only an elapsed deadline is a timeout; cancellation (shutdown signal)
	// is an execution fault with its own cause.
	switch ctx.Err() {
	case context.DeadlineExceeded:
		l.log.Warn("local command timed out",
			zap.String("command", name),
			zap.Duration("limit", l.timeout))
		return Result{}, &apperrors.TimeoutError{Host: "local", Op: name, Limit: l.timeout}
	case context.Canceled:
		return Result{}, &apperrors.ExecutionError{Host: "local", Op: name, Err: context.Canceled}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				Elapsed:  elapsed,
			}, nil
		}
		return Result{}, &apperrors.ExecutionError{Host: "local", Op: name, Err: err}
	}

	return Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Elapsed:  elapsed,
	}, nil
}
