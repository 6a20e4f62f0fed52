package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/notiondb/internal/remote"
)

// TableDef describes a table to create.
type TableDef struct {
	Name        string
	Description string
	Columns     []ColumnDef
}

// ColumnDef describes one column.
type ColumnDef struct {
	Name string
	Type string
}

// table is a resolved table row with its columns.
type table struct {
	id             string
	name           string
	description    string
	lastEditedTime string
	columns        map[string]remote.Column
}

func (t *table) schema() *remote.TableSchema {
	props := make(map[string]remote.Column, len(t.columns))
	for name, col := range t.columns {
		props[name] = col
	}
	return &remote.TableSchema{
		ID:         t.id,
		Title:      []remote.RichText{remote.TextRun(t.name)},
		Properties: props,
	}
}

// CreateTable creates a table with exactly one title column. Creating a
// table whose name already exists returns the existing schema when the
// columns agree.
func (s *Store) CreateTable(ctx context.Context, def TableDef) (*remote.TableSchema, error) {
	if err := validateTableDef(def); err != nil {
		return nil, err
	}

	existing, err := s.resolveTable(ctx, def.Name)
	if err == nil {
		if !sameColumns(existing, def) {
			return nil, remote.Invalid("table %q already exists with different columns", def.Name)
		}
		return existing.schema(), nil
	}
	if !remote.IsNotFound(err) {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	defer tx.Rollback()

	id := s.ids.Generate()
	now := s.timestamp()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tables (id, name, description, created_time, last_edited_time, seq)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM tables))
	`, id, def.Name, def.Description, now, now)
	if err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	for _, col := range def.Columns {
		colID := "title"
		if col.Type != remote.TypeTitle {
			colID = s.ids.Generate()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO columns (table_id, name, id, type) VALUES (?, ?, ?, ?)
		`, id, col.Name, colID, col.Type); err != nil {
			return nil, fmt.Errorf("create column %q: %w", col.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}

	t, err := s.resolveTable(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.schema(), nil
}

func validateTableDef(def TableDef) error {
	if strings.TrimSpace(def.Name) == "" {
		return remote.Invalid("table name is required")
	}

	titles := 0
	seen := map[string]bool{}
	for _, col := range def.Columns {
		switch {
		case col.Name == "":
			return remote.Invalid("table %q: column name is required", def.Name)
		case strings.ContainsRune(col.Name, '"'):
			return remote.Invalid("table %q: column name %q may not contain double quotes", def.Name, col.Name)
		case seen[col.Name]:
			return remote.Invalid("table %q: duplicate column %q", def.Name, col.Name)
		case col.Type == "":
			return remote.Invalid("table %q: column %q has no type", def.Name, col.Name)
		}
		seen[col.Name] = true
		if col.Type == remote.TypeTitle {
			titles++
		}
	}
	if titles != 1 {
		return remote.Invalid("table %q must have exactly one title column, found %d", def.Name, titles)
	}
	return nil
}

func sameColumns(t *table, def TableDef) bool {
	if len(t.columns) != len(def.Columns) {
		return false
	}
	for _, col := range def.Columns {
		existing, ok := t.columns[col.Name]
		if !ok || existing.Type != col.Type {
			return false
		}
	}
	return true
}

// FetchSchema returns the columns of the table whose id or name is ref.
func (s *Store) FetchSchema(ctx context.Context, ref string) (*remote.TableSchema, error) {
	t, err := s.resolveTable(ctx, ref)
	if err != nil {
		return nil, err
	}
	return t.schema(), nil
}

// querier is satisfied by *sql.DB and *sql.Tx. The store has a single
// connection, so reads inside a transaction must go through the Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// resolveTable loads a table by id, then by name.
func (s *Store) resolveTable(ctx context.Context, ref string) (*table, error) {
	return resolveTable(ctx, s.db, ref)
}

func resolveTable(ctx context.Context, q querier, ref string) (*table, error) {
	t := &table{}
	err := q.QueryRowContext(ctx, `
		SELECT id, name, description, last_edited_time
		FROM tables
		WHERE id = ? OR name = ?
		ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END
		LIMIT 1
	`, ref, ref, ref).Scan(&t.id, &t.name, &t.description, &t.lastEditedTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, remote.NotFound("Could not find database with ID: %s.", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve table %q: %w", ref, err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT name, id, type FROM columns
		WHERE table_id = ?
		ORDER BY name COLLATE BINARY ASC
	`, t.id)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	t.columns = map[string]remote.Column{}
	for rows.Next() {
		var col remote.Column
		if err := rows.Scan(&col.Name, &col.ID, &col.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		t.columns[col.Name] = col
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return t, nil
}

// SearchDatabases lists tables in creation order.
func (s *Store) SearchDatabases(ctx context.Context, cursor string, pageSize int) (*remote.DatabaseList, error) {
	limit, err := normalizePageSize(pageSize)
	if err != nil {
		return nil, err
	}
	start, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq FROM tables
		WHERE seq >= ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT ?
	`, start, limit+1)
	if err != nil {
		return nil, fmt.Errorf("search tables: %w", err)
	}

	type entry struct {
		id  string
		seq int64
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.seq); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	list := &remote.DatabaseList{Results: []remote.DatabaseInfo{}}
	if len(entries) > limit {
		list.HasMore = true
		list.NextCursor = strconv.FormatInt(entries[limit].seq, 10)
		entries = entries[:limit]
	}

	for _, e := range entries {
		t, err := s.resolveTable(ctx, e.id)
		if err != nil {
			return nil, err
		}
		props := make([]string, 0, len(t.columns))
		for name := range t.columns {
			props = append(props, name)
		}
		sort.Strings(props)

		list.Results = append(list.Results, remote.DatabaseInfo{
			ID:             t.id,
			Title:          t.name,
			Description:    t.description,
			LastEditedTime: t.lastEditedTime,
			Properties:     props,
		})
	}
	return list, nil
}

const maxPageSize = 100

// normalizePageSize applies the API's default and upper bound.
func normalizePageSize(n int) (int, error) {
	switch {
	case n == 0:
		return maxPageSize, nil
	case n < 0 || n > maxPageSize:
		return 0, remote.Invalid("body.page_size should be a number between 1 and %d, instead was `%d`.", maxPageSize, n)
	}
	return n, nil
}

// parseCursor decodes a start cursor: the seq of the first row to return.
func parseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	seq, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || seq < 1 {
		return 0, remote.Invalid("body.start_cursor should be a valid cursor, instead was `%q`.", cursor)
	}
	return seq, nil
}
