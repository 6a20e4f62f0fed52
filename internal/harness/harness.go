package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/notiondb/internal/compiler"
	"github.com/roach88/notiondb/internal/engine"
	"github.com/roach88/notiondb/internal/project"
	"github.com/roach88/notiondb/internal/store"
	"github.com/roach88/notiondb/internal/testutil"
)

// NextCursor as a step cursor continues from the previous step's page.
const NextCursor = "$next"

// Harness runs one scenario against an isolated local store.
type Harness struct {
	recorder *Recorder
	engine   *engine.Executor
	logger   *slog.Logger
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger handed to the seeder and executor.
// Default: logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database seeded from its table
// definitions. Record ids come from testutil.SequentialIDs and timestamps
// from testutil.DeterministicClock, so traces are identical across runs.
//
// An error is returned when the scenario cannot be set up: bad table
// definitions or a failing setup statement. Failed expectations and
// assertions are reported in Result.Errors instead.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDs("id")),
		store.WithClock(testutil.NewDeterministicClock()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	tables, err := loadTables(scenario)
	if err != nil {
		return nil, err
	}
	if _, err := compiler.Seed(ctx, st, tables, cfg.logger); err != nil {
		return nil, fmt.Errorf("failed to seed tables: %w", err)
	}

	engineOpts := []engine.Option{
		engine.WithLogger(cfg.logger),
		engine.WithRequireMatch(scenario.RequireMatch),
	}
	if scenario.KeepEmptyRows {
		engineOpts = append(engineOpts, engine.WithRowPolicy(project.KeepAllRows))
	}

	rec := NewRecorder(st)
	h := &Harness{
		recorder: rec,
		engine:   engine.New(rec, engineOpts...),
		logger:   cfg.logger,
	}

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	h.executeSteps(ctx, scenario.Steps, result)
	result.Trace = rec.Trace()

	actx := &AssertionContext{
		Ctx:    ctx,
		Engine: engine.New(st, engineOpts...),
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// loadTables compiles and validates the scenario's table definitions.
func loadTables(scenario *Scenario) ([]*compiler.TableSpec, error) {
	var tables []*compiler.TableSpec
	for _, path := range scenario.Tables {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read tables: %w", err)
		}
		specs, err := compiler.CompileSource(path, src)
		if err != nil {
			return nil, err
		}
		tables = append(tables, specs...)
	}
	if scenario.CUE != "" {
		specs, err := compiler.CompileSource(scenario.Name+".cue", []byte(scenario.CUE))
		if err != nil {
			return nil, err
		}
		tables = append(tables, specs...)
	}

	if verrs := compiler.Validate(tables); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return nil, fmt.Errorf("invalid table definitions: %w", errors.Join(errs...))
	}
	return tables, nil
}

// executeSetup runs setup statements untraced. Any failure aborts the run.
func (h *Harness) executeSetup(ctx context.Context, setup []Statement) error {
	h.recorder.Pause()
	for i, st := range setup {
		if _, err := h.engine.Execute(ctx, st.SQL, st.Params...); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		h.logger.Info("setup statement completed", "step", i, "sql", st.SQL)
	}
	return nil
}

// executeSteps runs each step with tracing on and checks its expect clause.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	var prev string
	for i, step := range steps {
		h.recorder.Record(i)
		sr, err := h.executeStep(ctx, step, prev)
		h.recorder.Pause()

		if err != nil {
			sr.Error = errorCodeOf(err)
		}
		result.Steps = append(result.Steps, sr)
		prev = sr.NextCursor

		for _, msg := range checkExpect(i, step.Expect, sr, err) {
			result.AddError(msg)
		}

		h.logger.Info("step completed",
			"step", i,
			"sql", step.SQL,
			"rows", len(sr.Rows),
			"error", sr.Error,
		)
	}
}

func (h *Harness) executeStep(ctx context.Context, step Step, prevCursor string) (StepResult, error) {
	sr := StepResult{SQL: step.SQL}

	var (
		page *project.PageResult
		err  error
	)
	switch {
	case len(step.Batch) > 0:
		err = h.engine.ExecuteMany(ctx, step.SQL, step.Batch)
	case step.Cursor != "":
		cursor := step.Cursor
		if cursor == NextCursor {
			if prevCursor == "" {
				return sr, fmt.Errorf("cursor %s: previous step left no next cursor", NextCursor)
			}
			cursor = prevCursor
		}
		page, err = h.engine.Select(ctx, step.SQL, cursor)
	default:
		page, err = h.engine.Execute(ctx, step.SQL, step.Params...)
	}

	if page != nil {
		sr.Rows = page.Data
		sr.HasMore = page.HasMore
		sr.NextCursor = page.NextCursor
	}
	return sr, err
}

// errorCodeOf returns the engine error code of err, or "error" for
// failures raised by the harness itself.
func errorCodeOf(err error) string {
	var e *engine.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return "error"
}

// checkExpect compares a step outcome with its expect clause.
func checkExpect(index int, expect *Expect, sr StepResult, err error) []string {
	prefix := fmt.Sprintf("steps[%d]", index)

	if expect == nil || expect.Error == "" {
		if err != nil {
			return []string{fmt.Sprintf("%s: unexpected error: %v", prefix, err)}
		}
	}
	if expect == nil {
		return nil
	}

	if expect.Error != "" {
		if sr.Error != expect.Error {
			actual := "success"
			if err != nil {
				actual = err.Error()
			}
			return []string{fmt.Sprintf("%s: expected error %s, got %s", prefix, expect.Error, actual)}
		}
		return nil
	}

	var msgs []string
	if expect.Rows != nil {
		if msg := matchRows(sr.Rows, expect.Rows); msg != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", prefix, msg))
		}
	}
	if expect.Count != nil && len(sr.Rows) != *expect.Count {
		msgs = append(msgs, fmt.Sprintf("%s: expected %d rows, got %d", prefix, *expect.Count, len(sr.Rows)))
	}
	if expect.HasMore != nil && sr.HasMore != *expect.HasMore {
		msgs = append(msgs, fmt.Sprintf("%s: expected has_more=%t, got %t", prefix, *expect.HasMore, sr.HasMore))
	}
	return msgs
}
