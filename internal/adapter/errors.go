package adapter

import (
	"errors"
	"fmt"

	"github.com/roach88/quadquery/internal/querybuilder"
)

// NotFoundError is returned by Find and FindBy when nothing matches.
// FindAll and FindAllBy return an empty slice instead.
type NotFoundError struct {
	// Options is the find specification as the caller passed it.
	Options querybuilder.FindOptions
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if id, ok := e.Options.Where[querybuilder.FieldID]; ok && len(e.Options.Where) == 1 {
		return fmt.Sprintf("entity not found: id=%v", id)
	}
	return fmt.Sprintf("entity not found: %d where conditions", len(e.Options.Where))
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
