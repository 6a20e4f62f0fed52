package engine

import (
	"context"
	"fmt"

	"github.com/roach88/notiondb/internal/native"
	"github.com/roach88/notiondb/internal/queryir"
	"github.com/roach88/notiondb/internal/remote"
	"github.com/roach88/notiondb/internal/schema"
	"github.com/roach88/notiondb/internal/sqlparse"
)

// UpdatePlan is the intermediate state of an UPDATE or DELETE: the patch
// every matched record receives and the ids the WHERE clause matched.
type UpdatePlan struct {
	Kind     queryir.Kind          `json:"kind"`
	Table    string                `json:"table"`
	TableRef string                `json:"table_ref"`
	Where    string                `json:"where"`
	Payload  remote.Payload        `json:"payload"`
	Outcomes []native.FieldOutcome `json:"outcomes,omitempty"`

	// MatchedIDs lists every matched record across all result pages, in
	// store order.
	MatchedIDs []string `json:"matched_ids"`
}

// Plan runs the read phases of an UPDATE or DELETE without patching
// anything.
func (e *Executor) Plan(ctx context.Context, sql string, params ...any) (*UpdatePlan, error) {
	text := sql
	if len(params) > 0 {
		var err error
		if text, err = sqlparse.Substitute(sql, params...); err != nil {
			return nil, classify(sql, err)
		}
	}

	stmt, err := e.parse(text)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *queryir.Update:
		return e.planUpdate(ctx, text, s)
	case *queryir.Delete:
		return e.planDelete(ctx, text, s)
	default:
		return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("only UPDATE and DELETE can be planned, got %s", stmt.Kind()), Statement: text}
	}
}

func (e *Executor) update(ctx context.Context, text string, stmt *queryir.Update) error {
	plan, err := e.planUpdate(ctx, text, stmt)
	if err != nil {
		return err
	}
	return e.apply(ctx, text, plan)
}

func (e *Executor) delete(ctx context.Context, text string, stmt *queryir.Delete) error {
	plan, err := e.planDelete(ctx, text, stmt)
	if err != nil {
		return err
	}
	return e.apply(ctx, text, plan)
}

func (e *Executor) planUpdate(ctx context.Context, text string, stmt *queryir.Update) (*UpdatePlan, error) {
	ref := e.TableRef(stmt.Table)
	tbl, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, classify(text, err)
	}

	// Phase 1: the payload is built once and reused for every match.
	fields := schema.AnnotateAssignments(stmt.SetValues, tbl, e.cfg)
	payload, outcomes, err := e.payloads.Build(parentID(tbl, ref), fields)
	if err != nil {
		return nil, classify(text, err)
	}
	e.logOmitted(stmt.Table, outcomes)

	plan := &UpdatePlan{
		Kind:     queryir.KindUpdate,
		Table:    stmt.Table,
		TableRef: ref,
		Where:    stmt.WhereClause,
		Payload:  native.WithoutParent(payload),
		Outcomes: outcomes,
	}

	// Phase 2
	if err := e.match(ctx, text, plan, tbl); err != nil {
		return nil, err
	}
	return plan, nil
}

func (e *Executor) planDelete(ctx context.Context, text string, stmt *queryir.Delete) (*UpdatePlan, error) {
	ref := e.TableRef(stmt.Table)
	tbl, err := e.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, classify(text, err)
	}

	plan := &UpdatePlan{
		Kind:     queryir.KindDelete,
		Table:    stmt.Table,
		TableRef: ref,
		Where:    stmt.WhereClause,
		Payload:  native.ArchivePayload(),
	}
	if err := e.match(ctx, text, plan, tbl); err != nil {
		return nil, err
	}
	return plan, nil
}

// match re-submits the WHERE clause as a SELECT and walks every result
// page, collecting record ids. Ids come from the native records, so the
// projector's row policy cannot hide a match.
func (e *Executor) match(ctx context.Context, text string, plan *UpdatePlan, tbl *remote.TableSchema) error {
	selectText := fmt.Sprintf("SELECT * FROM %s WHERE %s", plan.Table, plan.Where)
	stmt, err := sqlparse.Parse(selectText)
	if err != nil {
		return classify(text, fmt.Errorf("WHERE clause: %w", err))
	}
	sel, ok := stmt.(*queryir.Select)
	if !ok {
		return &Error{Code: ErrCodeParse, Message: fmt.Sprintf("WHERE clause %q is not a condition list", plan.Where), Statement: text}
	}
	if result := queryir.Validate(sel); !result.OK() {
		code := ErrCodeParse
		if len(result.Unsupported) > 0 {
			code = ErrCodeUnsupported
		}
		return &Error{Code: code, Message: fmt.Sprintf("WHERE clause %q: %v%v", plan.Where, result.Unsupported, result.Invalid), Statement: text}
	}

	req, err := e.queryRequest(sel, tbl)
	if err != nil {
		return classify(text, err)
	}

	plan.MatchedIDs = []string{}
	guard := newPageGuard(e.maxPages)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := guard.Next(plan.Table, req.StartCursor); err != nil {
			return &Error{Code: ErrCodeRemote, Message: err.Error(), Statement: text, Err: err}
		}

		e.logger.Debug("matching records", "table", plan.Table, "cursor", req.StartCursor)
		resp, err := e.store.QueryRecords(ctx, plan.TableRef, req)
		if err != nil {
			return classify(text, err)
		}
		for _, rec := range resp.Results {
			plan.MatchedIDs = append(plan.MatchedIDs, rec.ID)
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		req.StartCursor = resp.NextCursor
	}
	return nil
}

// apply is phase 3: one patch per matched id, stopping at the first
// failure.
func (e *Executor) apply(ctx context.Context, text string, plan *UpdatePlan) error {
	if len(plan.MatchedIDs) == 0 {
		if e.requireMatch {
			return NewNoRowsMatchedError(text, plan.Where)
		}
		e.logger.Info("no rows matched", "kind", plan.Kind, "table", plan.Table, "where", plan.Where)
		return nil
	}

	for i, id := range plan.MatchedIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.logger.Debug("patching record", "kind", plan.Kind, "id", id)
		if _, err := e.store.PatchRecord(ctx, id, plan.Payload); err != nil {
			e.logger.Warn("patch aborted", "kind", plan.Kind, "patched", i, "matched", len(plan.MatchedIDs), "error", err)
			return classify(text, err)
		}
	}

	e.logger.Info("records patched", "kind", plan.Kind, "table", plan.Table, "count", len(plan.MatchedIDs))
	return nil
}
