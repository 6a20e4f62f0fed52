package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/notiondb/internal/ir"
)

// TableSpec is a table definition compiled from CUE, with optional seed rows.
type TableSpec struct {
	Name        string
	Description string
	Columns     []ColumnSpec
	Rows        []ir.IRObject

	// Pos locates the definition in its source file.
	Pos token.Pos
}

// ColumnSpec is one column of a table definition.
type ColumnSpec struct {
	Name string
	Type string
	Pos  token.Pos
}

// Column returns the column with the given name.
func (t *TableSpec) Column(name string) (ColumnSpec, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// CompileSource compiles CUE source holding table definitions:
//
//	table: Tasks: {
//		description: "Work items"
//		columns: {Name: "title", Points: "number"}
//		rows: [{Name: "Write", Points: 3}]
//	}
//
// Tables are returned in declaration order.
func CompileSource(filename string, src []byte) ([]*TableSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileTables(v)
}

// CompileTables compiles every field of the top-level "table" struct.
func CompileTables(v cue.Value) ([]*TableSpec, error) {
	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return nil, &CompileError{
			Field:   "table",
			Message: "no table definitions found",
			Pos:     v.Pos(),
		}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var tables []*TableSpec
	for iter.Next() {
		spec, err := CompileTable(iter.Value())
		if err != nil {
			return nil, err
		}
		tables = append(tables, spec)
	}
	return tables, nil
}

// CompileTable parses one table definition. The table name is the value's
// last path label.
func CompileTable(v cue.Value) (*TableSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &TableSpec{Pos: v.Pos()}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = unquoteLabel(labels[len(labels)-1])
	}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Description = desc
	}

	columnsVal := v.LookupPath(cue.ParsePath("columns"))
	if !columnsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("table.%s.columns", spec.Name),
			Message: "columns are required",
			Pos:     v.Pos(),
		}
	}
	columns, err := parseColumns(columnsVal)
	if err != nil {
		return nil, err
	}
	spec.Columns = columns

	rowsVal := v.LookupPath(cue.ParsePath("rows"))
	if rowsVal.Exists() {
		rows, err := parseRows(rowsVal)
		if err != nil {
			return nil, err
		}
		spec.Rows = rows
	}

	return spec, nil
}

// unquoteLabel returns the plain label of a selector, so "My Table": {...}
// names the table My Table.
func unquoteLabel(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

func parseColumns(v cue.Value) ([]ColumnSpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var columns []ColumnSpec
	for iter.Next() {
		colType, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "columns." + iter.Selector().String(),
				Message: "column type must be a string such as \"title\", \"rich_text\" or \"number\"",
				Pos:     iter.Value().Pos(),
			}
		}
		columns = append(columns, ColumnSpec{
			Name: unquoteLabel(iter.Selector()),
			Type: colType,
			Pos:  iter.Value().Pos(),
		})
	}
	return columns, nil
}

func parseRows(v cue.Value) ([]ir.IRObject, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rows []ir.IRObject
	for i := 0; iter.Next(); i++ {
		fields, err := iter.Value().Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}

		row := ir.IRObject{}
		for fields.Next() {
			name := unquoteLabel(fields.Selector())
			val, err := extractValue(fields.Value())
			if err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("rows[%d].%s", i, name),
					Message: err.Error(),
					Pos:     fields.Value().Pos(),
				}
			}
			row[name] = val
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// extractValue converts a concrete CUE scalar to an IRValue.
// Floats are forbidden; the stores keep integers only.
func extractValue(v cue.Value) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return ir.IRInt(n), nil
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.FloatKind:
		return nil, fmt.Errorf("float values are forbidden, use an integer")
	case cue.BottomKind:
		return nil, fmt.Errorf("value must be concrete")
	default:
		return nil, fmt.Errorf("unsupported value kind: %v", v.Kind())
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
