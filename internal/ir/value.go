package ir

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// IRValue is a literal or a native body fragment. The set of implementations
// is closed: IRNull, IRString, IRInt, IRBool, IRArray and IRObject.
type IRValue interface {
	irValue()
}

// IRNull is JSON null.
type IRNull struct{}

// IRString is a string literal.
type IRString string

// IRInt is an integer literal. SQL literals never produce floats.
type IRInt int64

// IRBool is a boolean.
type IRBool bool

// IRArray is an ordered list, such as the operands of an "and" filter.
type IRArray []IRValue

// IRObject is a JSON object. It always marshals with sorted keys.
type IRObject map[string]IRValue

func (IRNull) irValue()   {}
func (IRString) irValue() {}
func (IRInt) irValue()    {}
func (IRBool) irValue()   {}
func (IRArray) irValue()  {}
func (IRObject) irValue() {}

// ParseLiteral converts a raw SQL literal into an IRValue.
//
// Surrounding whitespace and single quotes are stripped. A value made only of
// ASCII digits becomes IRInt; everything else (including "-5" and "3.5") stays
// an IRString. Digit strings that overflow int64 also stay strings.
func ParseLiteral(raw string) IRValue {
	return CoerceDigits(strings.Trim(strings.TrimSpace(raw), "'"))
}

// CoerceDigits returns IRInt when s is made only of ASCII digits and fits
// int64, and IRString(s) unchanged otherwise. Use it for text that is
// already unquoted, where stripping quotes again would lose data.
func CoerceDigits(s string) IRValue {
	if s != "" && strings.Trim(s, "0123456789") == "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IRInt(n)
		}
	}
	return IRString(s)
}

// Text renders a scalar IRValue the way it appears inside a statement:
// strings verbatim, integers in base 10, booleans as true/false, null as "".
// Containers render as JSON.
func Text(v IRValue) string {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return strconv.FormatInt(int64(val), 10)
	case IRBool:
		return strconv.FormatBool(bool(val))
	case nil, IRNull:
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// SortedKeys returns the keys ordered by UTF-16 code units, the order
// RFC 8785 prescribes. It differs from byte order only outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
	})
	return keys
}

// MarshalJSON implements json.Marshaler.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON implements json.Marshaler with sorted keys.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	out := []byte{'{'}
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			out = append(out, ',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(append(out, key...), ':')

		if out, err = appendValue(out, obj[k]); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
	}
	return append(out, '}'), nil
}

// MarshalJSON implements json.Marshaler.
func (arr IRArray) MarshalJSON() ([]byte, error) {
	out := []byte{'['}
	for i, elem := range arr {
		if i > 0 {
			out = append(out, ',')
		}

		var err error
		if out, err = appendValue(out, elem); err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
	}
	return append(out, ']'), nil
}

func appendValue(out []byte, v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return append(out, "null"...), nil
	case IRInt:
		return strconv.AppendInt(out, int64(val), 10), nil
	case IRBool:
		return strconv.AppendBool(out, bool(val)), nil
	case IRString, IRArray, IRObject:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return append(out, data...), nil
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}
