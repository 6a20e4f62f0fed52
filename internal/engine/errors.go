package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/notiondb/internal/native"
	"github.com/roach88/notiondb/internal/remote"
	"github.com/roach88/notiondb/internal/schema"
	"github.com/roach88/notiondb/internal/sqlparse"
)

// ErrorCode categorizes execution errors.
type ErrorCode string

const (
	// ErrCodeParse covers grammar, arity, parameter and value-encoding
	// failures. Raised before any write reaches the store.
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	// ErrCodeUnsupported covers statements no grammar recognizes and
	// recognized constructs the engine does not implement (OR connectives).
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED_STATEMENT"

	// ErrCodeUnresolvedColumn indicates a WHERE condition on a column the
	// table does not have.
	ErrCodeUnresolvedColumn ErrorCode = "UNRESOLVED_COLUMN"

	// ErrCodeNoRowsMatched indicates an UPDATE or DELETE matched nothing.
	// Only raised with WithRequireMatch(true).
	ErrCodeNoRowsMatched ErrorCode = "NO_ROWS_MATCHED"

	// ErrCodeRemote wraps a *remote.Error returned by the store.
	ErrCodeRemote ErrorCode = "REMOTE_ERROR"
)

// Error is returned by every Executor method.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Statement is the statement text being executed.
	Statement string

	// Column is set for ErrCodeUnresolvedColumn.
	Column string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s (column=%s)", e.Code, e.Message, e.Column)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying error, so errors.As still finds a
// *remote.Error inside a REMOTE_ERROR.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsParseError reports whether err is a PARSE_ERROR.
func IsParseError(err error) bool { return hasCode(err, ErrCodeParse) }

// IsUnsupported reports whether err is an UNSUPPORTED_STATEMENT error.
func IsUnsupported(err error) bool { return hasCode(err, ErrCodeUnsupported) }

// IsUnresolvedColumn reports whether err is an UNRESOLVED_COLUMN error.
func IsUnresolvedColumn(err error) bool { return hasCode(err, ErrCodeUnresolvedColumn) }

// IsNoRowsMatched reports whether err is a NO_ROWS_MATCHED error.
func IsNoRowsMatched(err error) bool { return hasCode(err, ErrCodeNoRowsMatched) }

// IsRemoteError reports whether err is a REMOTE_ERROR.
func IsRemoteError(err error) bool { return hasCode(err, ErrCodeRemote) }

// NewNoRowsMatchedError creates the error raised when a write matched
// nothing.
func NewNoRowsMatchedError(statement, where string) *Error {
	return &Error{
		Code:      ErrCodeNoRowsMatched,
		Message:   fmt.Sprintf("no rows match WHERE %s", where),
		Statement: statement,
	}
}

// classify maps a lower-layer error onto the error taxonomy. Errors that
// belong to no category (context cancellation) are returned unchanged.
func classify(statement string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	wrap := func(code ErrorCode) *Error {
		return &Error{Code: code, Message: err.Error(), Statement: statement, Err: err}
	}

	var unresolved *native.UnresolvedColumnError
	if errors.As(err, &unresolved) {
		out := wrap(ErrCodeUnresolvedColumn)
		out.Column = unresolved.Column
		return out
	}

	if _, ok := remote.AsError(err); ok {
		return wrap(ErrCodeRemote)
	}

	switch {
	case errors.Is(err, sqlparse.ErrUnsupportedStatement),
		errors.Is(err, native.ErrUnsupportedConnective),
		errors.Is(err, native.ErrUnsupportedOperator):
		return wrap(ErrCodeUnsupported)
	case errors.Is(err, sqlparse.ErrSyntax),
		errors.Is(err, sqlparse.ErrArityMismatch),
		errors.Is(err, sqlparse.ErrParameterCount),
		errors.Is(err, schema.ErrInvalidPageSize),
		errors.Is(err, native.ErrInvalidValue):
		return wrap(ErrCodeParse)
	}
	return err
}
