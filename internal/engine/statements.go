package engine

import (
	"context"

	"github.com/roach88/notiondb/internal/native"
	"github.com/roach88/notiondb/internal/project"
	"github.com/roach88/notiondb/internal/queryir"
	"github.com/roach88/notiondb/internal/remote"
	"github.com/roach88/notiondb/internal/schema"
)

func (e *Executor) insert(ctx context.Context, text string, stmt *queryir.Insert) error {
	ref := e.TableRef(stmt.Table)
	tbl, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return classify(text, err)
	}
	return e.create(ctx, text, ref, tbl, stmt)
}

// create encodes and creates one INSERT against an already resolved schema.
func (e *Executor) create(ctx context.Context, text, ref string, tbl *remote.TableSchema, stmt *queryir.Insert) error {
	fields := schema.AnnotateFields(stmt.Fields, tbl, e.cfg)

	payload, outcomes, err := e.payloads.Build(parentID(tbl, ref), fields)
	if err != nil {
		return classify(text, err)
	}
	e.logOmitted(stmt.Table, outcomes)

	e.logger.Debug("creating record", "table", stmt.Table, "ref", ref, "properties", len(payload.Properties))
	rec, err := e.store.CreateRecord(ctx, ref, payload)
	if err != nil {
		return classify(text, err)
	}

	e.logger.Info("record created", "table", stmt.Table, "id", rec.ID)
	return nil
}

func (e *Executor) selectPage(ctx context.Context, text string, stmt *queryir.Select, cursor string) (*project.PageResult, error) {
	ref := e.TableRef(stmt.Table)
	tbl, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, classify(text, err)
	}

	req, err := e.queryRequest(stmt, tbl)
	if err != nil {
		return nil, classify(text, err)
	}
	req.StartCursor = cursor

	columns := stmt.Columns
	if len(columns) == 0 {
		columns = tbl.Columns()
	}

	e.logger.Debug("querying records", "table", stmt.Table, "ref", ref, "page_size", req.PageSize, "clauses", len(req.Filter.And))
	resp, err := e.store.QueryRecords(ctx, ref, req)
	if err != nil {
		return nil, classify(text, err)
	}

	page := e.projector.Project(resp, columns)
	e.logger.Info("select completed", "table", stmt.Table, "records", len(resp.Results), "rows", len(page.Data), "has_more", page.HasMore)
	return page, nil
}

// queryRequest builds the filter and page size of a SELECT.
func (e *Executor) queryRequest(stmt *queryir.Select, tbl *remote.TableSchema) (remote.QueryRequest, error) {
	annotated, err := schema.AnnotateConditions(stmt.Conditions, tbl, e.cfg.DefaultPageSize)
	if err != nil {
		return remote.QueryRequest{}, err
	}

	filter, err := e.filters.Build(annotated)
	if err != nil {
		return remote.QueryRequest{}, err
	}

	return remote.QueryRequest{Filter: filter, PageSize: annotated.PageSize}, nil
}

func (e *Executor) logOmitted(table string, outcomes []native.FieldOutcome) {
	for _, o := range outcomes {
		if o.Outcome != schema.Mapped {
			e.logger.Debug("field omitted from payload", "table", table, "property", o.Property, "outcome", o.Outcome)
		}
	}
}

// parentID is the database id records are created under.
func parentID(tbl *remote.TableSchema, ref string) string {
	if tbl.ID != "" {
		return tbl.ID
	}
	return ref
}
