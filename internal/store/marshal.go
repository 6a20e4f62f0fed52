package store

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/remote"
)

// Record properties are stored as one canonical JSON object mapping column
// name to a flat value: IRString for text columns, IRInt or IRNull for
// number columns.

// marshalProperties converts stored values to canonical JSON TEXT.
func marshalProperties(values ir.IRObject) (string, error) {
	data, err := ir.MarshalCanonical(values)
	if err != nil {
		return "", fmt.Errorf("marshal properties: %w", err)
	}
	return string(data), nil
}

// unmarshalProperties parses canonical JSON TEXT back to stored values.
func unmarshalProperties(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var values ir.IRObject
	if err := values.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	return values, nil
}

// lookupColumn finds a payload key by column name, then by column id.
func (t *table) lookupColumn(key string) (remote.Column, bool) {
	if col, ok := t.columns[key]; ok {
		return col, true
	}
	for _, col := range t.columns {
		if col.ID == key {
			return col, true
		}
	}
	return remote.Column{}, false
}

// encodeProperties merges payload properties into values, validating each
// one against its column.
func encodeProperties(t *table, props map[string]remote.Property, values ir.IRObject) error {
	for key, prop := range props {
		col, ok := t.lookupColumn(key)
		if !ok {
			return remote.Invalid("%s is not a property that exists.", key)
		}
		v, err := encodeProperty(col, prop)
		if err != nil {
			return err
		}
		values[col.Name] = v
	}
	return nil
}

func encodeProperty(col remote.Column, prop remote.Property) (ir.IRValue, error) {
	if prop.Type != "" && prop.Type != col.Type {
		return nil, mismatch(col)
	}

	switch col.Type {
	case remote.TypeTitle:
		if prop.RichText != nil || prop.Number != nil {
			return nil, mismatch(col)
		}
		return ir.IRString(joinRuns(prop.Title)), nil

	case remote.TypeRichText:
		if prop.Title != nil || prop.Number != nil {
			return nil, mismatch(col)
		}
		return ir.IRString(joinRuns(prop.RichText)), nil

	case remote.TypeNumber:
		if prop.Title != nil || prop.RichText != nil {
			return nil, mismatch(col)
		}
		if prop.Number == nil {
			return ir.IRNull{}, nil
		}
		n := *prop.Number
		if n != math.Trunc(n) || math.Abs(n) >= 1<<53 {
			return nil, remote.Invalid("body.properties.%s.number should be an integer, instead was `%v`.", col.Name, n)
		}
		return ir.IRInt(int64(n)), nil

	default:
		return nil, remote.Invalid("property %s has type %s, which this store cannot write.", col.Name, col.Type)
	}
}

func mismatch(col remote.Column) error {
	return remote.Invalid("%s is expected to be %s.", col.Name, col.Type)
}

// joinRuns concatenates the content of every run.
func joinRuns(runs []remote.RichText) string {
	var b strings.Builder
	for _, r := range runs {
		switch {
		case r.Text != nil:
			b.WriteString(r.Text.Content)
		default:
			b.WriteString(r.PlainText)
		}
	}
	return b.String()
}

// decodeProperties renders stored values as typed properties, one per
// schema column. Columns without a stored value decode as empty.
func decodeProperties(t *table, values ir.IRObject) map[string]remote.Property {
	props := make(map[string]remote.Property, len(t.columns))
	for name, col := range t.columns {
		prop := remote.Property{ID: col.ID, Type: col.Type}
		v := values[name]

		switch col.Type {
		case remote.TypeTitle:
			prop.Title = textRuns(v)
		case remote.TypeRichText:
			prop.RichText = textRuns(v)
		case remote.TypeNumber:
			if n, ok := v.(ir.IRInt); ok {
				f := float64(n)
				prop.Number = &f
			}
		}
		props[name] = prop
	}
	return props
}

func textRuns(v ir.IRValue) []remote.RichText {
	s, ok := v.(ir.IRString)
	if !ok || s == "" {
		return []remote.RichText{}
	}
	return []remote.RichText{remote.TextRun(string(s))}
}
