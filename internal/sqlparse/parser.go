package sqlparse

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/notiondb/internal/queryir"
)

var (
	insertPattern = regexp.MustCompile(`(?is)^\s*INSERT\s+INTO\s+([\w ]+?)\s*\(([^)]*)\)\s*VALUES\s*\((.*)\)\s*;?\s*$`)
	selectPattern = regexp.MustCompile(`(?is)^\s*SELECT\s+(.+?)\s+FROM\s+(\w+)(?:\s+WHERE\s+(.+?))?\s*;?\s*$`)
	updatePattern = regexp.MustCompile(`(?is)^\s*UPDATE\s+(\w+)\s+SET\s+(.+?\s+WHERE\s+.+?)\s*;?\s*$`)
	deletePattern = regexp.MustCompile(`(?is)^\s*DELETE\s+FROM\s+(\w+)\s+WHERE\s+(.+?)\s*;?\s*$`)
)

// shapes is checked in order; the first match decides the statement kind.
var shapes = []struct {
	kind    queryir.Kind
	pattern *regexp.Regexp
}{
	{queryir.KindInsert, insertPattern},
	{queryir.KindSelect, selectPattern},
	{queryir.KindUpdate, updatePattern},
	{queryir.KindDelete, deletePattern},
}

// CheckStatement reports whether text has one of the supported shapes and
// which kind it is. It does not validate the clauses.
func CheckStatement(text string) (bool, queryir.Kind) {
	for _, shape := range shapes {
		if shape.pattern.MatchString(text) {
			return true, shape.kind
		}
	}
	return false, queryir.KindUnknown
}

// Parse converts statement text into a queryir statement.
//
// Errors wrap ErrUnsupportedStatement when no shape matches, ErrArityMismatch
// for INSERT count mismatches and ErrSyntax for malformed clauses.
func Parse(text string) (queryir.Statement, error) {
	if m := insertPattern.FindStringSubmatch(text); m != nil {
		return parseInsert(m)
	}
	if m := selectPattern.FindStringSubmatch(text); m != nil {
		return parseSelect(m)
	}
	if m := updatePattern.FindStringSubmatch(text); m != nil {
		return parseUpdate(m)
	}
	if m := deletePattern.FindStringSubmatch(text); m != nil {
		return parseDelete(m)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedStatement, abbreviate(text))
}

func parseInsert(m []string) (queryir.Statement, error) {
	properties, err := splitList(m[2])
	if err != nil {
		return nil, err
	}
	values, err := splitList(m[3])
	if err != nil {
		return nil, err
	}

	switch {
	case len(properties) > len(values):
		return nil, fmt.Errorf("%w: %d properties but only %d values", ErrArityMismatch, len(properties), len(values))
	case len(properties) < len(values):
		return nil, fmt.Errorf("%w: %d values but only %d properties", ErrArityMismatch, len(values), len(properties))
	}

	fields := make([]queryir.Field, len(properties))
	for i := range properties {
		fields[i] = queryir.Field{Property: properties[i], Value: values[i]}
	}

	return &queryir.Insert{
		Table:  strings.TrimSpace(m[1]),
		Fields: fields,
	}, nil
}

func parseSelect(m []string) (queryir.Statement, error) {
	stmt := &queryir.Select{Table: m[2]}

	if strings.TrimSpace(m[1]) != "*" {
		columns, err := splitList(m[1])
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			return nil, fmt.Errorf("%w: empty column list", ErrSyntax)
		}
		// "*" mixed into a list adds nothing; a list of only "*" means all.
		columns = slices.DeleteFunc(columns, func(c string) bool { return strings.TrimSpace(c) == "*" })
		if len(columns) > 0 {
			stmt.Columns = columns
		}
	}

	if m[3] != "" {
		terms, err := parseConditions(m[3])
		if err != nil {
			return nil, err
		}
		stmt.Conditions = terms
	}
	return stmt, nil
}

func parseUpdate(m []string) (queryir.Statement, error) {
	set, where, found, err := cutAtKeyword(m[2], "WHERE")
	if err != nil {
		return nil, err
	}
	if !found || set == "" || where == "" {
		return nil, fmt.Errorf("%w: UPDATE requires SET and WHERE clauses", ErrSyntax)
	}

	assignments, err := parseAssignments(set)
	if err != nil {
		return nil, err
	}

	return &queryir.Update{
		Table:       m[1],
		SetValues:   assignments,
		WhereClause: where,
	}, nil
}

func parseDelete(m []string) (queryir.Statement, error) {
	return &queryir.Delete{
		Table:       m[1],
		WhereClause: strings.TrimSpace(m[2]),
	}, nil
}

func abbreviate(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > 60 {
		return text[:57] + "..."
	}
	return text
}
