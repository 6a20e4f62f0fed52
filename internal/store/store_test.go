package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var v int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&v))
	return v
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notiondb.db")

	s, err := Open(path)
	require.NoError(t, err)
	createTasksTable(t, s)
	require.NoError(t, s.Close())

	for range 3 {
		s, err = Open(path)
		require.NoError(t, err)
		assert.Equal(t, currentSchemaVersion, userVersion(t, s.db))

		var n int
		require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM tables WHERE name = 'Tasks'").Scan(&n))
		assert.Equal(t, 1, n)
		require.NoError(t, s.Close())
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/notiondb.db")
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	assert.NoError(t, (&Store{}).Close(), "nil db")

	s, err := Open(filepath.Join(t.TempDir(), "notiondb.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NotPanics(t, func() { _ = s.Close() })
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			assert.NoError(t, s.verifyPragma(tt.pragma, tt.want))
		})
	}
}

func TestSchema_Tables(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		table   string
		columns []string
	}{
		{"tables", []string{"id", "name", "description", "created_time", "last_edited_time", "seq"}},
		{"columns", []string{"table_id", "name", "id", "type"}},
		{"records", []string{"id", "table_id", "properties", "archived", "created_time", "last_edited_time", "seq"}},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			assert.Equal(t, tt.columns, columnNames(t, s.db, tt.table))
		})
	}

	assert.True(t, slices.Contains(indexNames(t, s.db, "records"), "idx_records_table"))
}

func TestSchema_ColumnNeedsTable(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO columns (table_id, name, id, type) VALUES ('missing', 'Name', 'title', 'title')`)
	assert.Error(t, err, "foreign key on columns.table_id")
}

func TestSchemaVersion(t *testing.T) {
	tests := []struct {
		name    string
		stamp   int
		wantErr string
	}{
		{"unversioned file is stamped", 0, ""},
		{"current version", currentSchemaVersion, ""},
		{"newer version refused", currentSchemaVersion + 1, "newer than supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "notiondb.db")
			db, err := sql.Open("sqlite3", path)
			require.NoError(t, err)
			_, err = db.Exec(schemaSQL)
			require.NoError(t, err)
			_, err = db.Exec(fmt.Sprintf("PRAGMA user_version = %d", tt.stamp))
			require.NoError(t, err)
			require.NoError(t, db.Close())

			s, err := Open(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, currentSchemaVersion, userVersion(t, s.db))
		})
	}
}

func columnNames(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func indexNames(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
