package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/remote"
)

// Validation error codes (E100-E199)
const (
	ErrTableNameEmpty     = "E101" // table name is required
	ErrNoColumns          = "E102" // at least one column required
	ErrTitleColumnCount   = "E103" // exactly one title column
	ErrUnknownColumnType  = "E104" // column type not known
	ErrDuplicateTable     = "E105" // two definitions share a name
	ErrInvalidColumnName  = "E106" // empty or containing a double quote
	ErrRowUnknownColumn   = "E110" // seed row names a column that does not exist
	ErrRowTypeMismatch    = "E111" // seed value does not fit the column type
	ErrRowUnwritableValue = "E112" // seed value for a column the stores cannot write
)

// ColumnTypes are the column types a definition may declare. Only title,
// rich_text and number can hold seed values.
var ColumnTypes = []string{
	remote.TypeTitle,
	remote.TypeRichText,
	remote.TypeNumber,
	"checkbox",
	"select",
	"multi_select",
	"date",
	"url",
	"email",
	"phone_number",
	"people",
	"files",
}

// ValidationError represents a table definition error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks table definitions and returns every error found.
func Validate(tables []*TableSpec) []ValidationError {
	var errs []ValidationError
	seen := map[string]bool{}

	for _, t := range tables {
		errs = append(errs, validateTable(t)...)
		if t.Name == "" {
			continue
		}
		if seen[t.Name] {
			errs = append(errs, ValidationError{
				Field:   "table." + t.Name,
				Message: "table is defined more than once",
				Code:    ErrDuplicateTable,
				Line:    t.Pos.Line(),
			})
		}
		seen[t.Name] = true
	}
	return errs
}

func validateTable(t *TableSpec) []ValidationError {
	var errs []ValidationError
	field := "table." + t.Name

	if strings.TrimSpace(t.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "table",
			Message: "table name is required and must be non-empty",
			Code:    ErrTableNameEmpty,
			Line:    t.Pos.Line(),
		})
	}

	if len(t.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".columns",
			Message: "at least one column is required",
			Code:    ErrNoColumns,
			Line:    t.Pos.Line(),
		})
		return errs
	}

	titles := 0
	for _, c := range t.Columns {
		colField := field + ".columns." + c.Name
		if c.Name == "" || strings.ContainsRune(c.Name, '"') {
			errs = append(errs, ValidationError{
				Field:   colField,
				Message: "column name must be non-empty and may not contain double quotes",
				Code:    ErrInvalidColumnName,
				Line:    c.Pos.Line(),
			})
		}
		if !isKnownType(c.Type) {
			errs = append(errs, ValidationError{
				Field:   colField,
				Message: fmt.Sprintf("unknown column type %q", c.Type),
				Code:    ErrUnknownColumnType,
				Line:    c.Pos.Line(),
			})
		}
		if c.Type == remote.TypeTitle {
			titles++
		}
	}
	if titles != 1 {
		errs = append(errs, ValidationError{
			Field:   field + ".columns",
			Message: fmt.Sprintf("exactly one title column is required, found %d", titles),
			Code:    ErrTitleColumnCount,
			Line:    t.Pos.Line(),
		})
	}

	for i, row := range t.Rows {
		for _, name := range row.SortedKeys() {
			errs = append(errs, validateValue(t, fmt.Sprintf("%s.rows[%d].%s", field, i, name), name, row[name])...)
		}
	}
	return errs
}

func validateValue(t *TableSpec, field, name string, v ir.IRValue) []ValidationError {
	col, ok := t.Column(name)
	if !ok {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("column %q does not exist", name),
			Code:    ErrRowUnknownColumn,
			Line:    t.Pos.Line(),
		}}
	}

	if _, isNull := v.(ir.IRNull); isNull {
		return nil
	}

	switch col.Type {
	case remote.TypeTitle, remote.TypeRichText:
		if _, ok := v.(ir.IRString); ok {
			return nil
		}
	case remote.TypeNumber:
		if _, ok := v.(ir.IRInt); ok {
			return nil
		}
	default:
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("%s columns cannot hold seed values", col.Type),
			Code:    ErrRowUnwritableValue,
			Line:    col.Pos.Line(),
		}}
	}

	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("value %s does not fit %s column", ir.Text(v), col.Type),
		Code:    ErrRowTypeMismatch,
		Line:    col.Pos.Line(),
	}}
}

func isKnownType(t string) bool {
	for _, known := range ColumnTypes {
		if known == t {
			return true
		}
	}
	return false
}
