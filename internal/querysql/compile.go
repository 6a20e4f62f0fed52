package querysql

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/remote"
)

// Query selects one page of live records from a table of the local store.
type Query struct {
	// TableID is the table's id (not its name).
	TableID string

	// Filter is the native filter; nil or empty matches every record.
	Filter *remote.Filter

	// StartSeq is the seq of the first record to return; 0 starts at the
	// beginning.
	StartSeq int64

	// Limit caps the number of rows. The store asks for one more than the
	// page size to learn whether another page exists.
	Limit int
}

// Columns selected by every compiled query, in scan order.
const Columns = "id, properties, archived, created_time, last_edited_time, seq"

// Compiler compiles native filters to parameterized SQL over the records
// table. Property values live in a JSON column and are read with
// json_extract.
//
// Every query ends with ORDER BY seq, id so pages are stable. Values and
// JSON paths are always parameters, never interpolated.
type Compiler struct {
	columns map[string]remote.Column
}

// NewCompiler creates a compiler for a table with the given columns.
func NewCompiler(columns map[string]remote.Column) *Compiler {
	return &Compiler{columns: columns}
}

// Compile converts q to SQL and its parameters.
func (c *Compiler) Compile(q Query) (string, []any, error) {
	if q.TableID == "" {
		return "", nil, fmt.Errorf("cannot compile query without a table")
	}
	if q.Limit <= 0 {
		return "", nil, fmt.Errorf("limit must be positive, got %d", q.Limit)
	}

	where, params, err := c.CompileFilter(q.Filter)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(
		"SELECT %s FROM records WHERE table_id = ? AND archived = 0 AND seq >= ? AND %s ORDER BY %s LIMIT ?",
		Columns, where, stableOrderKey())

	args := make([]any, 0, len(params)+3)
	args = append(args, q.TableID, q.StartSeq)
	args = append(args, params...)
	args = append(args, q.Limit)
	return sql, args, nil
}

// stableOrderKey is the ORDER BY of every query. seq is unique; id breaks
// ties if that ever changes.
func stableOrderKey() string {
	return "seq ASC, id ASC COLLATE BINARY"
}

// CompileFilter converts a filter to a WHERE fragment. Clauses are joined
// with AND; an empty filter compiles to "1 = 1".
func (c *Compiler) CompileFilter(f *remote.Filter) (string, []any, error) {
	if f == nil || len(f.And) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(f.And))
	var params []any
	for _, clause := range f.And {
		sql, p, err := c.compileClause(clause)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func (c *Compiler) compileClause(clause remote.FilterClause) (string, []any, error) {
	col, ok := c.lookup(clause.Property)
	if !ok {
		return "", nil, remote.Invalid("Could not find property with name or id: %s", clause.Property)
	}
	if clause.Type != col.Type {
		return "", nil, remote.Invalid("body.filter.and.%s should be a %s filter, instead was `%s`.", col.Name, col.Type, clause.Type)
	}

	path := JSONPath(col.Name)
	switch col.Type {
	case remote.TypeTitle, remote.TypeRichText:
		return compileText(path, clause)
	case remote.TypeNumber:
		return compileNumber(path, clause)
	default:
		return "", nil, remote.Invalid("filtering on %s properties is not supported by this store.", col.Type)
	}
}

func (c *Compiler) lookup(key string) (remote.Column, bool) {
	if col, ok := c.columns[key]; ok {
		return col, true
	}
	for _, col := range c.columns {
		if col.ID == key {
			return col, true
		}
	}
	return remote.Column{}, false
}

// JSONPath returns the json_extract path of a property. Column names never
// contain double quotes; the store rejects them at table creation.
func JSONPath(name string) string {
	return `$."` + name + `"`
}

var textOperators = map[string]string{
	"equals":         "%s = ?",
	"does_not_equal": "%s <> ?",
	"contains":       "instr(%s, ?) > 0",
	"starts_with":    "substr(%s, 1, length(?)) = ?",
}

func compileText(path string, clause remote.FilterClause) (string, []any, error) {
	expr := "COALESCE(json_extract(properties, ?), '')"

	switch clause.Operator {
	case "is_empty":
		return expr + " = ''", []any{path}, nil
	case "is_not_empty":
		return expr + " <> ''", []any{path}, nil
	}

	format, ok := textOperators[clause.Operator]
	if !ok {
		return "", nil, remote.Invalid("%s is not a valid text filter operator.", clause.Operator)
	}
	s, ok := clause.Value.(ir.IRString)
	if !ok {
		return "", nil, remote.Invalid("body.filter.and.%s.%s should be a string, instead was `%s`.",
			clause.Property, clause.Operator, ir.Text(clause.Value))
	}

	// Stored text is NFC normalized by canonical JSON.
	value := norm.NFC.String(string(s))
	params := []any{path, value}
	if clause.Operator == "starts_with" {
		params = append(params, value)
	}
	return fmt.Sprintf(format, expr), params, nil
}

var numberOperators = map[string]string{
	"equals":                   "=",
	"does_not_equal":           "<>",
	"greater_than":             ">",
	"less_than":                "<",
	"greater_than_or_equal_to": ">=",
	"less_than_or_equal_to":    "<=",
}

func compileNumber(path string, clause remote.FilterClause) (string, []any, error) {
	expr := "json_extract(properties, ?)"

	switch clause.Operator {
	case "is_empty":
		return expr + " IS NULL", []any{path}, nil
	case "is_not_empty":
		return expr + " IS NOT NULL", []any{path}, nil
	}

	op, ok := numberOperators[clause.Operator]
	if !ok {
		return "", nil, remote.Invalid("%s is not a valid number filter operator.", clause.Operator)
	}
	n, ok := clause.Value.(ir.IRInt)
	if !ok {
		return "", nil, remote.Invalid("body.filter.and.%s.%s should be a number, instead was `%s`.",
			clause.Property, clause.Operator, ir.Text(clause.Value))
	}
	// NULL compares as unknown, so empty numbers never match.
	return fmt.Sprintf("%s %s ?", expr, op), []any{path, int64(n)}, nil
}
