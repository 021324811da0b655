package model

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the error taxonomy. Core packages wrap these with
// fmt.Errorf("%w: ...") context; the CLI layer maps them to exit codes.
// Only the outermost command layer decides to terminate the process.
var (
	// ErrValidation marks caller-correctable input problems (bad branch or
	// path syntax). Fails fast with no partial effects.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyExists marks a state precondition violation: the worktree,
	// directory or registry entry is already present.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound marks the inverse precondition: the requested worktree or
	// project does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAllocationExhausted is returned when the port allocator gives up
	// after its attempt cap. Fatal for the operation.
	ErrAllocationExhausted = errors.New("port allocation exhausted")

	// ErrUnsafeLocation is the safety-gate violation: a deletion target does
	// not lie under the designated worktrees subdirectory. Always fatal,
	// never overridable, and raised before any destructive command runs.
	ErrUnsafeLocation = errors.New("unsafe worktree location")

	// ErrCreationFailed means the underlying git worktree creation failed or
	// could not be verified afterward.
	ErrCreationFailed = errors.New("worktree creation failed")

	// ErrDeletionFailed means both the forced git removal and the
	// prune-plus-manual-delete fallback were exhausted.
	ErrDeletionFailed = errors.New("worktree deletion failed")

	// ErrMultiplexer marks a failure to drive the multiplexer during an open
	// operation, including its binary being absent. Teardown paths do not use
	// this: there, a missing multiplexer silently succeeds.
	ErrMultiplexer = errors.New("multiplexer error")

	// ErrCancelled means the user declined an interactive confirmation.
	ErrCancelled = errors.New("cancelled")
)

// ExitCode defines the CLI exit codes so scripts can classify outcomes.
type ExitCode int

const (
	ExitSuccess             ExitCode = 0
	ExitGeneralError        ExitCode = 1
	ExitValidation          ExitCode = 2
	ExitAlreadyExists       ExitCode = 3
	ExitNotFound            ExitCode = 4
	ExitAllocationExhausted ExitCode = 5
	ExitUnsafeLocation      ExitCode = 6
	ExitCreationFailed      ExitCode = 7
	ExitDeletionFailed      ExitCode = 8
	ExitMultiplexer         ExitCode = 9
	ExitCancelled           ExitCode = 10
)

// ExitCodeFor maps an error to its exit code by walking the wrap chain.
func ExitCodeFor(err error) ExitCode {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrValidation):
		return ExitValidation
	case errors.Is(err, ErrAlreadyExists):
		return ExitAlreadyExists
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrAllocationExhausted):
		return ExitAllocationExhausted
	case errors.Is(err, ErrUnsafeLocation):
		return ExitUnsafeLocation
	case errors.Is(err, ErrCreationFailed):
		return ExitCreationFailed
	case errors.Is(err, ErrDeletionFailed):
		return ExitDeletionFailed
	case errors.Is(err, ErrMultiplexer):
		return ExitMultiplexer
	case errors.Is(err, ErrCancelled):
		return ExitCancelled
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitGeneralError
}

// CLIError carries an explicit exit code for errors that do not fit the
// sentinel taxonomy, such as git command failures surfaced verbatim.
type CLIError struct {
	Code    ExitCode
	Message string
	Err     error
}

// Error satisfies the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// WrapCLIError creates a CLIError wrapping an underlying error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
