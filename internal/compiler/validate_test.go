package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/notiondb/internal/ir"
)

func validTasks() *TableSpec {
	return &TableSpec{
		Name: "Tasks",
		Columns: []ColumnSpec{
			{Name: "Name", Type: "title"},
			{Name: "Points", Type: "number"},
			{Name: "Done", Type: "checkbox"},
		},
		Rows: []ir.IRObject{
			{"Name": ir.IRString("Write"), "Points": ir.IRInt(3)},
			{"Name": ir.IRString("Ship"), "Points": ir.IRNull{}, "Done": ir.IRNull{}},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate([]*TableSpec{validTasks()}))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TableSpec)
		code   string
	}{
		{"empty name", func(s *TableSpec) { s.Name = " " }, ErrTableNameEmpty},
		{"no columns", func(s *TableSpec) { s.Columns = nil; s.Rows = nil }, ErrNoColumns},
		{"no title", func(s *TableSpec) { s.Columns[0].Type = "rich_text" }, ErrTitleColumnCount},
		{"unknown type", func(s *TableSpec) { s.Columns[2].Type = "formula" }, ErrUnknownColumnType},
		{"quote in column", func(s *TableSpec) { s.Columns[1].Name = `Po"ints`; s.Rows = nil }, ErrInvalidColumnName},
		{"row unknown column", func(s *TableSpec) { s.Rows[0]["Owner"] = ir.IRString("me") }, ErrRowUnknownColumn},
		{"string into number", func(s *TableSpec) { s.Rows[0]["Points"] = ir.IRString("three") }, ErrRowTypeMismatch},
		{"number into title", func(s *TableSpec) { s.Rows[0]["Name"] = ir.IRInt(1) }, ErrRowTypeMismatch},
		{"value for checkbox", func(s *TableSpec) { s.Rows[0]["Done"] = ir.IRString("yes") }, ErrRowUnwritableValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validTasks()
			tt.mutate(spec)

			errs := Validate([]*TableSpec{spec})
			codes := make([]string, 0, len(errs))
			for _, e := range errs {
				codes = append(codes, e.Code)
			}
			assert.Contains(t, codes, tt.code)
		})
	}
}

func TestValidate_DuplicateTable(t *testing.T) {
	errs := Validate([]*TableSpec{validTasks(), validTasks()})
	if assert.Len(t, errs, 1) {
		assert.Equal(t, ErrDuplicateTable, errs[0].Code)
		assert.Equal(t, "[E105] table.Tasks: table is defined more than once", errs[0].Error())
	}
}

func TestValidationError_Line(t *testing.T) {
	err := ValidationError{Field: "table.T", Message: "bad", Code: ErrNoColumns, Line: 4}
	assert.Equal(t, "[E102] line 4: table.T: bad", err.Error())
}
