package operator

import (
	"errors"
	"fmt"
)

// UnsupportedOperatorError is returned when an operator tag outside the
// closed set, or an operator in a position that has no compile rule for
// it, reaches a decoder or compiler.
type UnsupportedOperatorError struct {
	Kind Kind
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator: %q", string(e.Kind))
}

// InvalidOperatorError is returned for an operator of a known kind whose
// payload has the wrong shape.
type InvalidOperatorError struct {
	Kind    Kind
	Message string
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("invalid %s operator: %s", e.Kind, e.Message)
}

// IsUnsupportedOperator checks if err is or wraps an UnsupportedOperatorError.
func IsUnsupportedOperator(err error) bool {
	var target *UnsupportedOperatorError
	return errors.As(err, &target)
}

// IsInvalidOperator checks if err is or wraps an InvalidOperatorError.
func IsInvalidOperator(err error) bool {
	var target *InvalidOperatorError
	return errors.As(err, &target)
}
