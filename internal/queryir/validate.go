package queryir

import (
	"fmt"
	"slices"
)

// ValidationResult describes structural problems found in a statement.
type ValidationResult struct {
	// Invalid lists malformed constructs (empty lists, unknown operators,
	// conditions not separated by a connective).
	Invalid []string

	// Unsupported lists well-formed constructs outside the supported
	// fragment, such as OR connectives.
	Unsupported []string
}

// OK reports whether the statement passed validation.
func (r ValidationResult) OK() bool {
	return len(r.Invalid) == 0 && len(r.Unsupported) == 0
}

// Validate checks a statement against the supported fragment.
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement) ValidationResult {
	v := &validator{}
	v.validateStatement(stmt)
	return ValidationResult{
		Invalid:     v.invalid,
		Unsupported: v.unsupported,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	invalid     []string
	unsupported []string
}

func (v *validator) addInvalid(format string, args ...any) {
	v.invalid = append(v.invalid, fmt.Sprintf(format, args...))
}

func (v *validator) addUnsupported(format string, args ...any) {
	v.unsupported = append(v.unsupported, fmt.Sprintf(format, args...))
}

func (v *validator) validateStatement(stmt Statement) {
	if stmt == nil {
		v.addInvalid("nil statement")
		return
	}

	if stmt.TableName() == "" {
		v.addInvalid("%s: table name is required", stmt.Kind())
	}

	switch s := stmt.(type) {
	case *Insert:
		if len(s.Fields) == 0 {
			v.addInvalid("insert: at least one field is required")
		}
		for i, f := range s.Fields {
			if f.Property == "" {
				v.addInvalid("insert: field %d has an empty property name", i)
			}
		}
	case *Select:
		v.validateTerms(s.Conditions)
	case *Update:
		if len(s.SetValues) == 0 {
			v.addInvalid("update: at least one SET assignment is required")
		}
		for i, a := range s.SetValues {
			if a.Key == "" {
				v.addInvalid("update: assignment %d has an empty key", i)
			}
		}
		if s.WhereClause == "" {
			v.addInvalid("update: WHERE clause is required")
		}
	case *Delete:
		if s.WhereClause == "" {
			v.addInvalid("delete: WHERE clause is required")
		}
	default:
		v.addInvalid("unknown statement type %T", stmt)
	}
}

// validateTerms checks that a condition list alternates Condition and
// Connective, starting and ending with a Condition.
func (v *validator) validateTerms(terms []Term) {
	expectCondition := true
	for i, term := range terms {
		switch t := term.(type) {
		case Condition:
			if !expectCondition {
				v.addInvalid("condition %d: missing connective before %q", i, t.Parameter)
			}
			if t.Parameter == "" {
				v.addInvalid("condition %d: empty parameter", i)
			}
			if !slices.Contains(Operators, t.Operator) {
				v.addInvalid("condition %d: unknown operator %q", i, t.Operator)
			}
			expectCondition = false
		case Connective:
			if expectCondition {
				v.addInvalid("term %d: connective %q without a preceding condition", i, t)
			}
			if t != And {
				v.addUnsupported("connective %q is not supported; only AND is", t)
			}
			expectCondition = true
		default:
			v.addInvalid("term %d: unknown term type %T", i, term)
		}
	}
	if len(terms) > 0 && expectCondition {
		v.addInvalid("condition list ends with a connective")
	}
}
