package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/remote"
)

// CreateRecord inserts a record into the table named by the payload's
// parent, or by tableRef when the payload has none.
//
// Every property key must name a column (by name or id) and carry a value
// of the column's type. Records get the next store-wide seq, which fixes
// their position in query results.
func (s *Store) CreateRecord(ctx context.Context, tableRef string, payload remote.Payload) (*remote.Record, error) {
	ref := tableRef
	if payload.Parent != nil && payload.Parent.DatabaseID != "" {
		ref = payload.Parent.DatabaseID
	}

	t, err := s.resolveTable(ctx, ref)
	if err != nil {
		return nil, err
	}

	values := ir.IRObject{}
	if err := encodeProperties(t, payload.Properties, values); err != nil {
		return nil, err
	}
	propsJSON, err := marshalProperties(values)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	archived := payload.Archived != nil && *payload.Archived
	id := s.ids.Generate()
	now := s.timestamp()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records
		(id, table_id, properties, archived, created_time, last_edited_time, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records))
	`,
		id,
		t.id,
		propsJSON,
		archived,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	return &remote.Record{
		Object:         "page",
		ID:             id,
		CreatedTime:    now,
		LastEditedTime: now,
		Archived:       archived,
		Parent:         &remote.Parent{Type: "database_id", DatabaseID: t.id},
		Properties:     decodeProperties(t, values),
	}, nil
}

// PatchRecord merges the payload's properties into a record and applies its
// archived flag. An archived record only accepts a patch that unarchives it.
func (s *Store) PatchRecord(ctx context.Context, recordID string, payload remote.Payload) (*remote.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("patch record: %w", err)
	}
	defer tx.Rollback()

	var (
		tableID     string
		propsJSON   string
		archived    bool
		createdTime string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT table_id, properties, archived, created_time
		FROM records WHERE id = ?
	`, recordID).Scan(&tableID, &propsJSON, &archived, &createdTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remote.NotFound("Could not find page with ID: %s.", recordID)
	}
	if err != nil {
		return nil, fmt.Errorf("patch record: %w", err)
	}

	unarchive := payload.Archived != nil && !*payload.Archived
	if archived && !unarchive && len(payload.Properties) > 0 {
		return nil, remote.Invalid("Can't edit block that is archived. You must unarchive the block before editing.")
	}

	t, err := resolveTable(ctx, tx, tableID)
	if err != nil {
		return nil, err
	}

	values, err := unmarshalProperties(propsJSON)
	if err != nil {
		return nil, fmt.Errorf("patch record %s: %w", recordID, err)
	}
	if err := encodeProperties(t, payload.Properties, values); err != nil {
		return nil, err
	}
	merged, err := marshalProperties(values)
	if err != nil {
		return nil, fmt.Errorf("patch record: %w", err)
	}

	if payload.Archived != nil {
		archived = *payload.Archived
	}
	now := s.timestamp()

	_, err = tx.ExecContext(ctx, `
		UPDATE records
		SET properties = ?, archived = ?, last_edited_time = ?
		WHERE id = ?
	`, merged, archived, now, recordID)
	if err != nil {
		return nil, fmt.Errorf("patch record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("patch record: %w", err)
	}

	return &remote.Record{
		Object:         "page",
		ID:             recordID,
		CreatedTime:    createdTime,
		LastEditedTime: now,
		Archived:       archived,
		Parent:         &remote.Parent{Type: "database_id", DatabaseID: t.id},
		Properties:     decodeProperties(t, values),
	}, nil
}
