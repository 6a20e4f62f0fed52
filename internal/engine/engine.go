package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/notiondb/internal/native"
	"github.com/roach88/notiondb/internal/project"
	"github.com/roach88/notiondb/internal/queryir"
	"github.com/roach88/notiondb/internal/remote"
	"github.com/roach88/notiondb/internal/schema"
	"github.com/roach88/notiondb/internal/sqlparse"
)

// Executor translates statements into store calls.
//
// An Executor holds only immutable configuration and may be shared by
// goroutines; each call builds its own schema, filter and payload values.
type Executor struct {
	store     remote.Store
	resolver  *schema.Resolver
	cfg       native.Config
	filters   *native.FilterBuilder
	payloads  *native.PayloadBuilder
	projector project.Projector
	logger    *slog.Logger

	// tables maps statement table names to store references.
	tables       map[string]string
	defaultTable string

	requireMatch bool
	maxPages     int
}

// Option configures an Executor.
type Option func(*Executor)

// WithConfig replaces the operator table, page size and type sets.
func WithConfig(cfg native.Config) Option {
	return func(e *Executor) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTables maps table names used in statements to store references.
// Names not in the map resolve to defaultRef, or to the name itself when
// defaultRef is empty.
func WithTables(tables map[string]string, defaultRef string) Option {
	return func(e *Executor) {
		e.tables = make(map[string]string, len(tables))
		for name, ref := range tables {
			e.tables[name] = ref
		}
		e.defaultTable = defaultRef
	}
}

// WithRowPolicy sets what SELECT does with rows whose values are all falsy.
// Default: project.DropFalsyRows.
func WithRowPolicy(policy project.EmptyRowPolicy) Option {
	return func(e *Executor) {
		e.projector.Policy = policy
	}
}

// WithRequireMatch makes UPDATE and DELETE fail with NO_ROWS_MATCHED when
// the WHERE clause matches nothing. Default: false.
func WithRequireMatch(require bool) Option {
	return func(e *Executor) {
		e.requireMatch = require
	}
}

// WithMaxPages bounds how many pages UPDATE and DELETE read while matching.
// Zero or less removes the bound. Default: DefaultMaxPages.
func WithMaxPages(n int) Option {
	return func(e *Executor) {
		e.maxPages = n
	}
}

// New creates an Executor for store.
func New(store remote.Store, opts ...Option) *Executor {
	e := &Executor{
		store:     store,
		resolver:  schema.NewResolver(store),
		cfg:       native.DefaultConfig(),
		projector: project.Projector{Policy: project.DropFalsyRows},
		logger:    slog.Default(),
		maxPages:  DefaultMaxPages,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.filters = native.NewFilterBuilder(e.cfg)
	e.payloads = native.NewPayloadBuilder(e.cfg)
	return e
}

// TableRef returns the store reference for a statement table name.
func (e *Executor) TableRef(name string) string {
	if ref, ok := e.tables[name]; ok {
		return ref
	}
	for n, ref := range e.tables {
		if strings.EqualFold(n, name) {
			return ref
		}
	}
	if e.defaultTable != "" {
		return e.defaultTable
	}
	return name
}

// Execute runs one statement. params, when given, are substituted into the
// %s placeholders of sql first. SELECT returns a page; writes return nil.
func (e *Executor) Execute(ctx context.Context, sql string, params ...any) (*project.PageResult, error) {
	text := sql
	if len(params) > 0 {
		var err error
		text, err = sqlparse.Substitute(sql, params...)
		if err != nil {
			return nil, classify(sql, err)
		}
	}

	stmt, err := e.parse(text)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *queryir.Insert:
		return nil, e.insert(ctx, text, s)
	case *queryir.Select:
		return e.selectPage(ctx, text, s, "")
	case *queryir.Update:
		return nil, e.update(ctx, text, s)
	case *queryir.Delete:
		return nil, e.delete(ctx, text, s)
	default:
		return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("statement kind %s", stmt.Kind()), Statement: text}
	}
}

// Select runs a SELECT starting at cursor, the NextCursor of a previous
// page. An empty cursor starts from the first page.
func (e *Executor) Select(ctx context.Context, sql, cursor string) (*project.PageResult, error) {
	stmt, err := e.parse(sql)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*queryir.Select)
	if !ok {
		return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("expected SELECT, got %s", stmt.Kind()), Statement: sql}
	}
	return e.selectPage(ctx, sql, sel, cursor)
}

// ExecuteMany runs a parameterized INSERT once per row. The schema is
// fetched once. Rows are created sequentially and the first failure stops
// the batch; rows already created stay created.
func (e *Executor) ExecuteMany(ctx context.Context, sql string, rows [][]any) error {
	if ok, kind := sqlparse.CheckStatement(sql); !ok || kind != queryir.KindInsert {
		return &Error{Code: ErrCodeUnsupported, Message: "batched execution requires an INSERT template", Statement: sql}
	}

	template, err := e.parse(sql)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	ref := e.TableRef(template.TableName())
	tbl, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return classify(sql, err)
	}

	for i, row := range rows {
		text, err := sqlparse.Substitute(sql, row...)
		if err != nil {
			return classify(sql, fmt.Errorf("row %d: %w", i, err))
		}
		stmt, err := e.parse(text)
		if err != nil {
			return err
		}
		insert, ok := stmt.(*queryir.Insert)
		if !ok {
			return &Error{Code: ErrCodeParse, Message: fmt.Sprintf("row %d does not render an INSERT", i), Statement: text}
		}
		if err := e.create(ctx, text, ref, tbl, insert); err != nil {
			e.logger.Warn("batch insert aborted", "row", i, "rows", len(rows), "error", err)
			return err
		}
	}

	e.logger.Info("batch insert completed", "table", template.TableName(), "rows", len(rows))
	return nil
}

// parse checks, parses and validates statement text.
func (e *Executor) parse(text string) (queryir.Statement, error) {
	if ok, _ := sqlparse.CheckStatement(text); !ok {
		return nil, &Error{
			Code:      ErrCodeUnsupported,
			Message:   "invalid SQL statement or statement type not implemented",
			Statement: text,
			Err:       sqlparse.ErrUnsupportedStatement,
		}
	}

	stmt, err := sqlparse.Parse(text)
	if err != nil {
		return nil, classify(text, err)
	}

	result := queryir.Validate(stmt)
	if len(result.Unsupported) > 0 {
		return nil, &Error{Code: ErrCodeUnsupported, Message: strings.Join(result.Unsupported, "; "), Statement: text}
	}
	if len(result.Invalid) > 0 {
		return nil, &Error{Code: ErrCodeParse, Message: strings.Join(result.Invalid, "; "), Statement: text}
	}
	return stmt, nil
}
