package querybuilder

import (
	"errors"
	"fmt"

	"github.com/roach88/quadquery/internal/operator"
)

// CompilationErrorCode categorizes compilation errors.
type CompilationErrorCode string

const (
	// ErrCodeUnsupportedOperator indicates an operator with no compile rule
	// in the position it was used.
	ErrCodeUnsupportedOperator CompilationErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeInvalidPath indicates a malformed field name or property path.
	ErrCodeInvalidPath CompilationErrorCode = "INVALID_PATH"

	// ErrCodeInvalidValue indicates a value of the wrong shape for its field.
	ErrCodeInvalidValue CompilationErrorCode = "INVALID_VALUE"
)

// CompilationError is raised before any backend access when a find
// specification cannot be compiled. No partial query is ever built.
type CompilationError struct {
	// Code identifies the error category.
	Code CompilationErrorCode

	// Field is the where, order, relations or select key being compiled.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CompilationError) Unwrap() error {
	return e.Err
}

// IsCompilationError returns true if err is or wraps a CompilationError.
func IsCompilationError(err error) bool {
	var ce *CompilationError
	return errors.As(err, &ce)
}

// IsUnsupportedOperator returns true if err is an unsupported operator
// compilation error.
func IsUnsupportedOperator(err error) bool {
	var ce *CompilationError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeUnsupportedOperator
	}
	return false
}

// NewUnsupportedOperatorError creates a CompilationError for an operator
// that has no compile rule where it was used.
func NewUnsupportedOperatorError(field string, kind operator.Kind) *CompilationError {
	return &CompilationError{
		Code:    ErrCodeUnsupportedOperator,
		Field:   field,
		Message: fmt.Sprintf("operator %q is not supported here", kind),
		Err:     &operator.UnsupportedOperatorError{Kind: kind},
	}
}

// NewInvalidValueError creates a CompilationError for a malformed value.
func NewInvalidValueError(field, format string, args ...any) *CompilationError {
	return &CompilationError{
		Code:    ErrCodeInvalidValue,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewInvalidPathError creates a CompilationError for a malformed path.
func NewInvalidPathError(field, format string, args ...any) *CompilationError {
	return &CompilationError{
		Code:    ErrCodeInvalidPath,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
