package schema

import (
	"errors"
	"fmt"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/queryir"
	"github.com/roach88/notiondb/internal/remote"
)

// PageSizeParameter is the pseudo-column that sets the query page size
// instead of filtering.
const PageSizeParameter = "page_size"

// ErrInvalidPageSize is returned when page_size is not a positive integer.
var ErrInvalidPageSize = errors.New("invalid page_size")

// Outcome records what annotation decided for one field or condition.
type Outcome string

const (
	// Mapped entries resolved to a column with a supported type.
	Mapped Outcome = "mapped"

	// Dropped entries resolved to a column whose type has no encoder.
	Dropped Outcome = "dropped"

	// Unresolved entries name a column the schema does not have.
	Unresolved Outcome = "unresolved"
)

// Annotation is the column metadata attached to a field or condition.
// ID and Type are empty for Unresolved entries.
type Annotation struct {
	ID      string  `json:"id,omitempty"`
	Type    string  `json:"type,omitempty"`
	Outcome Outcome `json:"outcome"`
}

// TypeSupport reports whether values of a column type can be encoded.
type TypeSupport interface {
	Supports(columnType string) bool
}

// AnnotatedField is an INSERT field or UPDATE assignment with its column.
type AnnotatedField struct {
	Property   string     `json:"property"`
	Value      ir.IRValue `json:"value"`
	Annotation `json:"annotation"`
}

// AnnotatedCondition is a WHERE condition with its column.
type AnnotatedCondition struct {
	queryir.Condition
	Annotation
}

// Annotated is a condition list after page_size extraction.
// Connectives[i] joins Conditions[i] and Conditions[i+1].
type Annotated struct {
	Conditions  []AnnotatedCondition
	Connectives []queryir.Connective
	PageSize    int
}

// AnnotateFields resolves each INSERT field against s. Field values stay
// raw strings; the payload builder coerces them per type.
func AnnotateFields(fields []queryir.Field, s *remote.TableSchema, support TypeSupport) []AnnotatedField {
	out := make([]AnnotatedField, len(fields))
	for i, f := range fields {
		out[i] = AnnotatedField{
			Property:   f.Property,
			Value:      ir.IRString(f.Value),
			Annotation: annotate(f.Property, s, support),
		}
	}
	return out
}

// AnnotateAssignments resolves UPDATE SET assignments the same way.
func AnnotateAssignments(assignments []queryir.Assignment, s *remote.TableSchema, support TypeSupport) []AnnotatedField {
	out := make([]AnnotatedField, len(assignments))
	for i, a := range assignments {
		out[i] = AnnotatedField{
			Property:   a.Key,
			Value:      a.Value,
			Annotation: annotate(a.Key, s, support),
		}
	}
	return out
}

func annotate(name string, s *remote.TableSchema, support TypeSupport) Annotation {
	col, ok := s.Column(name)
	if !ok {
		return Annotation{Outcome: Unresolved}
	}
	a := Annotation{ID: col.ID, Type: col.Type, Outcome: Mapped}
	if support != nil && !support.Supports(col.Type) {
		a.Outcome = Dropped
	}
	return a
}

// AnnotateConditions extracts page_size from terms and resolves the
// remaining conditions against s. Conditions on any column type are
// Mapped; only unknown columns are Unresolved.
func AnnotateConditions(terms []queryir.Term, s *remote.TableSchema, defaultPageSize int) (Annotated, error) {
	rest, pageSize, err := ExtractPageSize(terms, defaultPageSize)
	if err != nil {
		return Annotated{}, err
	}

	out := Annotated{PageSize: pageSize}
	for _, term := range rest {
		switch t := term.(type) {
		case queryir.Condition:
			out.Conditions = append(out.Conditions, AnnotatedCondition{
				Condition:  t,
				Annotation: annotate(t.Parameter, s, nil),
			})
		case queryir.Connective:
			out.Connectives = append(out.Connectives, t)
		}
	}
	return out, nil
}

// ExtractPageSize removes every page_size condition, together with one
// adjacent connective, and returns the first one's value. Without a
// page_size condition the default is returned.
func ExtractPageSize(terms []queryir.Term, defaultPageSize int) ([]queryir.Term, int, error) {
	pageSize := defaultPageSize
	found := false

	rest := make([]queryir.Term, 0, len(terms))
	dropNextConnective := false
	for _, term := range terms {
		switch t := term.(type) {
		case queryir.Condition:
			if t.Parameter != PageSizeParameter {
				rest = append(rest, t)
				dropNextConnective = false
				continue
			}
			if !found {
				n, err := pageSizeValue(t.Value)
				if err != nil {
					return nil, 0, err
				}
				pageSize, found = n, true
			}
			if len(rest) > 0 {
				if _, ok := rest[len(rest)-1].(queryir.Connective); ok {
					rest = rest[:len(rest)-1]
					continue
				}
			}
			dropNextConnective = true
		case queryir.Connective:
			if dropNextConnective {
				dropNextConnective = false
				continue
			}
			rest = append(rest, t)
		}
	}
	return rest, pageSize, nil
}

func pageSizeValue(v ir.IRValue) (int, error) {
	n, ok := v.(ir.IRInt)
	if !ok || n < 1 {
		return 0, fmt.Errorf("%w: %q is not a positive integer", ErrInvalidPageSize, ir.Text(v))
	}
	return int(n), nil
}
