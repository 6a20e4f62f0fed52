package native

import (
	"fmt"
	"math"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/remote"
)

// FilterIR renders a filter as the IR tree sent on the wire.
func FilterIR(f *remote.Filter) ir.IRObject {
	clauses := ir.IRArray{}
	if f != nil {
		for _, c := range f.And {
			clauses = append(clauses, ir.IRObject{
				"property": ir.IRString(c.Property),
				c.Type:     ir.IRObject{c.Operator: valueOrNull(c.Value)},
			})
		}
	}
	return ir.IRObject{"and": clauses}
}

// QueryIR renders a query request.
func QueryIR(req remote.QueryRequest) ir.IRObject {
	obj := ir.IRObject{"page_size": ir.IRInt(req.PageSize)}
	if req.Filter != nil {
		obj["filter"] = FilterIR(req.Filter)
	}
	if req.StartCursor != "" {
		obj["start_cursor"] = ir.IRString(req.StartCursor)
	}
	return obj
}

// PayloadIR renders a create or patch payload. Numbers must be integral.
func PayloadIR(p remote.Payload) (ir.IRObject, error) {
	obj := ir.IRObject{}
	if p.Parent != nil {
		obj["parent"] = ir.IRObject{"database_id": ir.IRString(p.Parent.DatabaseID)}
	}
	if p.Archived != nil {
		obj["archived"] = ir.IRBool(*p.Archived)
	}
	if p.Properties != nil {
		props := ir.IRObject{}
		for name, prop := range p.Properties {
			v, err := PropertyIR(prop)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			props[name] = v
		}
		obj["properties"] = props
	}
	return obj, nil
}

// PropertyIR renders one property value.
func PropertyIR(prop remote.Property) (ir.IRObject, error) {
	obj := ir.IRObject{}
	if prop.Title != nil {
		obj["title"] = runsIR(prop.Title)
	}
	if prop.RichText != nil {
		obj["rich_text"] = runsIR(prop.RichText)
	}
	if prop.Number != nil {
		n := *prop.Number
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%w: number %v is not integral", ErrInvalidValue, n)
		}
		obj["number"] = ir.IRInt(int64(n))
	}
	return obj, nil
}

func runsIR(runs []remote.RichText) ir.IRArray {
	out := make(ir.IRArray, len(runs))
	for i, r := range runs {
		run := ir.IRObject{
			"type":       ir.IRString(r.Type),
			"plain_text": ir.IRString(r.PlainText),
		}
		if r.Text != nil {
			run["text"] = ir.IRObject{"content": ir.IRString(r.Text.Content)}
		}
		out[i] = run
	}
	return out
}

func valueOrNull(v ir.IRValue) ir.IRValue {
	if v == nil {
		return ir.IRNull{}
	}
	return v
}
