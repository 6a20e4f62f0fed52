package harness

import (
	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/project"
)

// Store operation names used in traces and assertions.
const (
	OpFetchSchema  = "fetch_schema"
	OpCreateRecord = "create_record"
	OpQueryRecords = "query_records"
	OpPatchRecord  = "patch_record"
)

// TraceEvent is one store call made by a step.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Step int    `json:"step"`
	Op   string `json:"op"`
	Ref  string `json:"ref"`

	// Body is the rendered request, nil for fetch_schema.
	Body ir.IRObject `json:"body,omitempty"`

	// Result summarizes the response: column names, record ids, has_more.
	Result ir.IRObject `json:"result,omitempty"`

	// Error is the store error code when the call failed.
	Error string `json:"error,omitempty"`
}

// StepResult is the observed outcome of one step.
type StepResult struct {
	SQL        string        `json:"sql"`
	Rows       []project.Row `json:"rows,omitempty"`
	HasMore    bool          `json:"has_more,omitempty"`
	NextCursor string        `json:"next_cursor,omitempty"`

	// Error is the engine error code, empty on success.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the store calls of all steps in order.
	Trace []TraceEvent `json:"trace"`

	// Steps holds one entry per scenario step.
	Steps []StepResult `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
