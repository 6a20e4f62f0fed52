package sqlparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/notiondb/internal/ir"
)

// Substitute renders %s and %d placeholders in template with values.
//
// Strings are emitted as single-quoted literals with embedded quotes
// doubled; a placeholder already wrapped in quotes ('%s') gets the escaped
// text without extra quotes. Integers are emitted bare and nil becomes NULL.
// %% is a literal percent sign. The number of placeholders must equal
// len(values).
func Substitute(template string, values ...any) (string, error) {
	var (
		b    strings.Builder
		next int
	)
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(template) {
			return "", fmt.Errorf("%w: dangling %% at end of template", ErrSyntax)
		}

		verb := template[i+1]
		i++
		switch verb {
		case '%':
			b.WriteByte('%')
			continue
		case 's', 'd':
		default:
			return "", fmt.Errorf("%w: unsupported placeholder %%%c", ErrSyntax, verb)
		}

		if next >= len(values) {
			return "", fmt.Errorf("%w: template has more placeholders than the %d values given", ErrParameterCount, len(values))
		}
		value := values[next]
		next++

		if verb == 'd' && !isInteger(value) {
			return "", fmt.Errorf("%w: %%d placeholder %d needs an integer, got %T", ErrSyntax, next, value)
		}

		quoted := i >= 2 && template[i-2] == '\'' && i+1 < len(template) && template[i+1] == '\''
		b.WriteString(renderValue(value, quoted))
	}

	if next != len(values) {
		return "", fmt.Errorf("%w: %d values given but template has %d placeholders", ErrParameterCount, len(values), next)
	}
	return b.String(), nil
}

func renderValue(value any, quoted bool) string {
	switch v := value.(type) {
	case nil:
		if quoted {
			return ""
		}
		return "NULL"
	case ir.IRNull:
		return renderValue(nil, quoted)
	case ir.IRInt:
		return strconv.FormatInt(int64(v), 10)
	case ir.IRBool:
		return strconv.FormatBool(bool(v))
	case ir.IRString:
		return quote(string(v), quoted)
	case string:
		return quote(v, quoted)
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if isInteger(value) {
		return fmt.Sprintf("%d", value)
	}
	return quote(fmt.Sprint(value), quoted)
}

func quote(s string, alreadyQuoted bool) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	if alreadyQuoted {
		return escaped
	}
	return "'" + escaped + "'"
}

func isInteger(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, ir.IRInt:
		return true
	}
	return false
}
