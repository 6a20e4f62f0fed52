package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/notiondb/internal/querysql"
	"github.com/roach88/notiondb/internal/remote"
)

// QueryRecords returns one page of the table's live records matching the
// request's filter, in creation order. next_cursor is the seq of the first
// record of the following page.
func (s *Store) QueryRecords(ctx context.Context, tableRef string, req remote.QueryRequest) (*remote.QueryResponse, error) {
	limit, err := normalizePageSize(req.PageSize)
	if err != nil {
		return nil, err
	}
	start, err := parseCursor(req.StartCursor)
	if err != nil {
		return nil, err
	}

	t, err := s.resolveTable(ctx, tableRef)
	if err != nil {
		return nil, err
	}

	query, args, err := querysql.NewCompiler(t.columns).Compile(querysql.Query{
		TableID:  t.id,
		Filter:   req.Filter,
		StartSeq: start,
		Limit:    limit + 1,
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	resp := &remote.QueryResponse{Results: []remote.Record{}}
	for rows.Next() {
		rec, seq, err := scanRecord(rows, t)
		if err != nil {
			return nil, err
		}
		if len(resp.Results) == limit {
			resp.HasMore = true
			resp.NextCursor = strconv.FormatInt(seq, 10)
			break
		}
		resp.Results = append(resp.Results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return resp, nil
}

// ReadRecord returns a record by id, archived or not.
func (s *Store) ReadRecord(ctx context.Context, id string) (*remote.Record, error) {
	var tableID string
	err := s.db.QueryRowContext(ctx, `SELECT table_id FROM records WHERE id = ?`, id).Scan(&tableID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remote.NotFound("Could not find page with ID: %s.", id)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	t, err := s.resolveTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+querysql.Columns+` FROM records WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		return nil, remote.NotFound("Could not find page with ID: %s.", id)
	}
	rec, _, err := scanRecord(rows, t)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// scanRecord scans one row selected with querysql.Columns.
func scanRecord(rows *sql.Rows, t *table) (remote.Record, int64, error) {
	var (
		rec       remote.Record
		propsJSON string
		seq       int64
	)
	if err := rows.Scan(&rec.ID, &propsJSON, &rec.Archived, &rec.CreatedTime, &rec.LastEditedTime, &seq); err != nil {
		return remote.Record{}, 0, fmt.Errorf("scan record: %w", err)
	}

	values, err := unmarshalProperties(propsJSON)
	if err != nil {
		return remote.Record{}, 0, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	rec.Object = "page"
	rec.Parent = &remote.Parent{Type: "database_id", DatabaseID: t.id}
	rec.Properties = decodeProperties(t, values)
	return rec, seq, nil
}
