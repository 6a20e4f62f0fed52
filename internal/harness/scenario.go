package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of statements run against a freshly seeded local
// store, with checks on their outcomes and on the store calls they made.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Tables lists CUE table definition files to seed the store with.
	// Relative paths are resolved against the scenario file's directory.
	Tables []string `yaml:"tables,omitempty"`

	// CUE is inline table definition source, seeded after Tables.
	CUE string `yaml:"cue,omitempty"`

	// RequireMatch makes UPDATE and DELETE fail when nothing matches.
	RequireMatch bool `yaml:"require_match,omitempty"`

	// KeepEmptyRows keeps SELECT rows whose projected values are all falsy.
	KeepEmptyRows bool `yaml:"keep_empty_rows,omitempty"`

	// Setup statements run before the steps and must succeed. Their store
	// calls are not traced.
	Setup []Statement `yaml:"setup,omitempty"`

	// Steps are the statements under test.
	Steps []Step `yaml:"steps"`

	// Assertions validate the call trace and the final table contents.
	// Supported types: call_contains, call_order, call_count, final_rows
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Statement is one SQL statement with optional %s parameters.
type Statement struct {
	SQL    string `yaml:"sql"`
	Params []any  `yaml:"params,omitempty"`
}

// Step runs one statement and optionally checks its outcome.
type Step struct {
	// SQL is the statement text.
	SQL string `yaml:"sql"`

	// Params are substituted into the %s placeholders of SQL.
	Params []any `yaml:"params,omitempty"`

	// Batch runs SQL as an INSERT template once per row. Exclusive with
	// Params.
	Batch [][]any `yaml:"batch,omitempty"`

	// Cursor continues a SELECT from a previous page. The value "$next"
	// uses the previous step's next cursor.
	Cursor string `yaml:"cursor,omitempty"`

	// Expect checks the outcome. If nil the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes a step outcome.
type Expect struct {
	// Error is the expected engine error code, e.g. "PARSE_ERROR".
	Error string `yaml:"error,omitempty"`

	// Rows are the expected SELECT rows in order. Each row is a subset
	// match; the row count must be equal.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Count is the expected number of SELECT rows.
	Count *int `yaml:"count,omitempty"`

	// HasMore is the expected has_more flag of a SELECT page.
	HasMore *bool `yaml:"has_more,omitempty"`
}

// Assertion validates the call trace or the final table contents.
type Assertion struct {
	// Type specifies the assertion type:
	// - "call_contains": a call to Op whose body contains Body
	// - "call_order": the first calls to each of Ops appear in order
	// - "call_count": Op was called exactly Count times
	// - "final_rows": SQL selects rows matching Rows (or Count rows)
	Type string `yaml:"type"`

	// Op is a store operation name (call_contains, call_count).
	Op string `yaml:"op,omitempty"`

	// Body is the expected request body (call_contains). Subset match.
	Body map[string]any `yaml:"body,omitempty"`

	// Ops is the expected operation order (call_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of calls or rows.
	Count *int `yaml:"count,omitempty"`

	// SQL is the SELECT run after the steps (final_rows).
	SQL string `yaml:"sql,omitempty"`

	// Rows are the expected rows (final_rows). Subset match per row.
	Rows []map[string]any `yaml:"rows,omitempty"`
}

// Assertion type constants.
const (
	AssertCallContains = "call_contains"
	AssertCallOrder    = "call_order"
	AssertCallCount    = "call_count"
	AssertFinalRows    = "final_rows"
)

// LoadScenario reads and parses a scenario YAML file. Table paths are
// resolved against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving table paths against
// basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range scenario.Tables {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Tables[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Tables) == 0 && s.CUE == "" {
		return fmt.Errorf("tables or cue is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, p := range s.Tables {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("table file not found: %s", p)
		}
	}

	for i, st := range s.Setup {
		if st.SQL == "" {
			return fmt.Errorf("setup[%d]: sql is required", i)
		}
	}

	for i, step := range s.Steps {
		if step.SQL == "" {
			return fmt.Errorf("steps[%d]: sql is required", i)
		}
		if len(step.Batch) > 0 && len(step.Params) > 0 {
			return fmt.Errorf("steps[%d]: batch and params are exclusive", i)
		}
		if e := step.Expect; e != nil && e.Error != "" && (len(e.Rows) > 0 || e.Count != nil || e.HasMore != nil) {
			return fmt.Errorf("steps[%d].expect: error excludes rows, count and has_more", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCallContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for call_contains", index)
		}
	case AssertCallOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for call_order", index)
		}
	case AssertCallCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for call_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertFinalRows:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for final_rows", index)
		}
		if a.Rows == nil && a.Count == nil {
			return fmt.Errorf("assertions[%d]: rows or count is required for final_rows", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
