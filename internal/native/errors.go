package native

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedConnective is returned for any connective other than AND.
	ErrUnsupportedConnective = errors.New("unsupported connective")

	// ErrUnsupportedOperator is returned for operators missing from the
	// operator table.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrInvalidValue is returned when a value cannot be encoded for its
	// column type.
	ErrInvalidValue = errors.New("invalid value")
)

// UnresolvedColumnError is returned when a filter names a column the
// schema does not have.
type UnresolvedColumnError struct {
	Column string
}

// Error implements the error interface.
func (e *UnresolvedColumnError) Error() string {
	return fmt.Sprintf("column %q not found in table schema", e.Column)
}
