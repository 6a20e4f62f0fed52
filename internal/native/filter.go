package native

import (
	"fmt"
	"strconv"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/queryir"
	"github.com/roach88/notiondb/internal/remote"
	"github.com/roach88/notiondb/internal/schema"
)

// FilterBuilder converts annotated WHERE conditions into a native filter.
type FilterBuilder struct {
	cfg Config
}

// NewFilterBuilder creates a FilterBuilder using cfg.
func NewFilterBuilder(cfg Config) *FilterBuilder {
	return &FilterBuilder{cfg: cfg}
}

// Build returns {"and": [...]} with one clause per condition, in order.
// Only AND connectives are accepted; there is no OR, nesting or negation.
func (b *FilterBuilder) Build(a schema.Annotated) (*remote.Filter, error) {
	for _, conn := range a.Connectives {
		if conn != queryir.And {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedConnective, conn)
		}
	}

	filter := &remote.Filter{And: make([]remote.FilterClause, 0, len(a.Conditions))}
	for i, cond := range a.Conditions {
		clause, err := b.buildClause(cond)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		filter.And = append(filter.And, clause)
	}
	return filter, nil
}

func (b *FilterBuilder) buildClause(cond schema.AnnotatedCondition) (remote.FilterClause, error) {
	if cond.Outcome == schema.Unresolved {
		return remote.FilterClause{}, &UnresolvedColumnError{Column: cond.Parameter}
	}

	op, ok := b.cfg.Operators[cond.Operator]
	if !ok {
		return remote.FilterClause{}, fmt.Errorf("%w: %s", ErrUnsupportedOperator, cond.Operator)
	}

	return remote.FilterClause{
		Property: cond.Parameter,
		Type:     cond.Type,
		Operator: op,
		Value:    b.filterValue(cond.Type, cond.Value),
	}, nil
}

// filterValue applies per-type semantics: number columns compare against
// integers, text columns against strings. Other types pass through.
func (b *FilterBuilder) filterValue(columnType string, v ir.IRValue) ir.IRValue {
	switch {
	case b.cfg.isNumber(columnType):
		if s, ok := v.(ir.IRString); ok {
			if n, err := strconv.ParseInt(string(s), 10, 64); err == nil {
				return ir.IRInt(n)
			}
		}
	case b.cfg.isText(columnType):
		if _, ok := v.(ir.IRInt); ok {
			return ir.IRString(ir.Text(v))
		}
	}
	return v
}
