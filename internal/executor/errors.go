package executor

import (
	"errors"
	"fmt"
)

// ExecutionError reports a failed call to a backend.
type ExecutionError struct {
	// Backend names the executor that failed.
	Backend Backend

	// Operation is the executor method, such as "select" or "update".
	Operation string

	// StatusCode is the HTTP status of a remote response, or zero.
	StatusCode int

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Backend, e.Operation, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Backend, e.Operation, msg)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecutionError returns true if err is or wraps an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.StatusCode
	}
	return 0
}

// resultError is a malformed or unexpected backend result. Callers wrap
// it in an ExecutionError.
type resultError struct {
	msg string
}

func (e *resultError) Error() string { return e.msg }

func errorf(format string, args ...any) error {
	return &resultError{msg: fmt.Sprintf(format, args...)}
}

func wrap(backend Backend, op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExecutionError{Backend: backend, Operation: op, Err: err}
}
