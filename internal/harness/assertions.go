package harness

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/roach88/notiondb/internal/engine"
	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/project"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d %s %s", event.Seq, event.Step, event.Op, event.Ref)
			if event.Error != "" {
				fmt.Fprintf(&buf, " error=%s", event.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// assertCallContains checks that some call to Op has a body containing
// Body (subset match).
func assertCallContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Op == assertion.Op && matchIR(event.Body, assertion.Body) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertCallContains,
		Expected: fmt.Sprintf("%s with body %v", assertion.Op, assertion.Body),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertCallOrder checks that the first call of each op appears in the
// listed order. Other calls may be interleaved.
func assertCallOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if positions[event.Op] == 0 {
			positions[event.Op] = i + 1 // 1-indexed for readability
		}
	}

	for _, op := range assertion.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("all calls present: %v", assertion.Ops),
				Actual:   fmt.Sprintf("missing call: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Ops); i++ {
		prev, curr := assertion.Ops[i-1], assertion.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertCallOrder,
				Expected: fmt.Sprintf("calls in order: %v", assertion.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertCallCount checks that Op was called exactly Count times.
func assertCallCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == assertion.Op {
			count++
		}
	}

	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d calls of %s", *assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d calls", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalRows runs SQL and compares every page of its result with the
// expected rows.
func assertFinalRows(ctx context.Context, eng *engine.Executor, assertion Assertion) error {
	var rows []project.Row
	page, err := eng.Execute(ctx, assertion.SQL)
	for err == nil && page != nil {
		rows = append(rows, page.Data...)
		if !page.HasMore {
			break
		}
		page, err = eng.Select(ctx, assertion.SQL, page.NextCursor)
	}
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalRows,
			Expected: fmt.Sprintf("rows of %s", assertion.SQL),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if assertion.Count != nil && len(rows) != *assertion.Count {
		return &AssertionError{
			Type:     AssertFinalRows,
			Expected: fmt.Sprintf("%d rows from %s", *assertion.Count, assertion.SQL),
			Actual:   fmt.Sprintf("%d rows", len(rows)),
		}
	}
	if assertion.Rows != nil {
		if msg := matchRows(rows, assertion.Rows); msg != "" {
			return &AssertionError{
				Type:     AssertFinalRows,
				Expected: fmt.Sprintf("rows of %s to match", assertion.SQL),
				Actual:   msg,
			}
		}
	}
	return nil
}

// matchRows compares rows in order. Counts must be equal; each row is a
// subset match. Returns "" on success.
func matchRows(actual []project.Row, expected []map[string]any) string {
	if len(actual) != len(expected) {
		return fmt.Sprintf("expected %d rows, got %d", len(expected), len(actual))
	}
	for i := range expected {
		keys := make([]string, 0, len(expected[i]))
		for k := range expected[i] {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			got, ok := actual[i][k]
			if !ok {
				return fmt.Sprintf("row %d: field %q not present", i, k)
			}
			want := expected[i][k]
			if normalize(got) != normalize(want) {
				return fmt.Sprintf("row %d: field %q = %v (type %T), expected %v (type %T)", i, k, got, got, want, want)
			}
		}
	}
	return ""
}

// normalize maps scalar values from YAML and from projected rows onto one
// comparable form: integers become int64.
func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val)
		}
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<63 {
			return int64(val)
		}
	case []any, map[string]any:
		return fmt.Sprint(val)
	}
	return v
}

// matchIR reports whether actual contains expected. Objects match as
// subsets, arrays element-wise with equal length.
func matchIR(actual ir.IRValue, expected any) bool {
	switch exp := expected.(type) {
	case nil:
		if actual == nil {
			return true
		}
		_, ok := actual.(ir.IRNull)
		return ok
	case map[string]any:
		obj, ok := actual.(ir.IRObject)
		if !ok {
			return len(exp) == 0 && actual == nil
		}
		for k, v := range exp {
			got, ok := obj[k]
			if !ok || !matchIR(got, v) {
				return false
			}
		}
		return true
	case []any:
		arr, ok := actual.(ir.IRArray)
		if !ok || len(arr) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchIR(arr[i], exp[i]) {
				return false
			}
		}
		return true
	case string:
		s, ok := actual.(ir.IRString)
		return ok && string(s) == exp
	case bool:
		b, ok := actual.(ir.IRBool)
		return ok && bool(b) == exp
	default:
		n, ok := actual.(ir.IRInt)
		return ok && normalize(expected) == int64(n)
	}
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx context.Context

	// Engine runs final_rows queries. It must not be traced.
	Engine *engine.Executor
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCallContains:
			err = assertCallContains(result.Trace, assertion)
		case AssertCallOrder:
			err = assertCallOrder(result.Trace, assertion)
		case AssertCallCount:
			if assertion.Count == nil {
				err = fmt.Errorf("assertion[%d]: call_count requires count", i)
			} else {
				err = assertCallCount(result.Trace, assertion)
			}
		case AssertFinalRows:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: final_rows requires an engine", i)
			} else {
				err = assertFinalRows(actx.Ctx, actx.Engine, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
