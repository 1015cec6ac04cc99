package engine

import (
	"errors"
	"fmt"
)

// EvaluationError is an error detected while evaluating a query document.
type EvaluationError struct {
	// Code identifies the error category.
	Code EvaluationErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// EvaluationErrorCode categorizes evaluation errors.
type EvaluationErrorCode string

const (
	// ErrCodeUnsupported indicates a document construct the engine cannot
	// evaluate.
	ErrCodeUnsupported EvaluationErrorCode = "UNSUPPORTED"

	// ErrCodeInvalidQuery indicates a document that fails validation.
	ErrCodeInvalidQuery EvaluationErrorCode = "INVALID_QUERY"

	// ErrCodeGraphNotFound indicates DROP GRAPH of a graph that does not
	// exist without SILENT.
	ErrCodeGraphNotFound EvaluationErrorCode = "GRAPH_NOT_FOUND"

	// ErrCodeQuotaExceeded indicates the solution budget was exhausted.
	ErrCodeQuotaExceeded EvaluationErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeQuotaExceeded
	}
	return false
}

// IsGraphNotFound returns true if the error reports a missing graph.
func IsGraphNotFound(err error) bool {
	var ee *EvaluationError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeGraphNotFound
	}
	return false
}

func newUnsupportedError(format string, args ...any) *EvaluationError {
	return &EvaluationError{Code: ErrCodeUnsupported, Message: fmt.Sprintf(format, args...)}
}

// NewQuotaError creates an EvaluationError for an exhausted solution budget.
func NewQuotaError(solutions, limit int) *EvaluationError {
	return &EvaluationError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("query exceeded solution budget (%d > %d)", solutions, limit),
		Details: map[string]string{
			"solutions":     fmt.Sprintf("%d", solutions),
			"max_solutions": fmt.Sprintf("%d", limit),
		},
	}
}

// exprError is an expression evaluation error. It never escapes the
// engine: a FILTER treats it as false and a BIND leaves its variable
// unbound.
type exprError struct {
	msg string
}

func (e *exprError) Error() string { return e.msg }

func errExpr(format string, args ...any) error {
	return &exprError{msg: fmt.Sprintf(format, args...)}
}
