package sqlparse

import "errors"

var (
	// ErrUnsupportedStatement is returned when text matches none of the
	// supported statement shapes.
	ErrUnsupportedStatement = errors.New("unsupported statement")

	// ErrArityMismatch is returned when an INSERT names a different number
	// of properties than values.
	ErrArityMismatch = errors.New("arity mismatch")

	// ErrSyntax is returned for malformed clauses inside a recognized shape.
	ErrSyntax = errors.New("syntax error")

	// ErrParameterCount is returned by Substitute when the number of
	// placeholders differs from the number of values.
	ErrParameterCount = errors.New("parameter count mismatch")
)
