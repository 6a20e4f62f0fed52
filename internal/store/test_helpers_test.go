package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/notiondb/internal/remote"
	"github.com/roach88/notiondb/internal/testutil"
)

// createTestStore opens a store in a temp dir with deterministic ids and
// timestamps.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(testutil.NewSequentialIDs("id")),
		WithClock(testutil.NewDeterministicClock()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTasksTable creates the table most tests use.
func createTasksTable(t *testing.T, s *Store) *remote.TableSchema {
	t.Helper()
	schema, err := s.CreateTable(context.Background(), TableDef{
		Name: "Tasks",
		Columns: []ColumnDef{
			{Name: "Name", Type: remote.TypeTitle},
			{Name: "Notes", Type: remote.TypeRichText},
			{Name: "Points", Type: remote.TypeNumber},
			{Name: "Done", Type: "checkbox"},
		},
	})
	require.NoError(t, err)
	return schema
}

func num(n float64) *float64 { return &n }

func taskPayload(name string, points float64) remote.Payload {
	return remote.Payload{Properties: map[string]remote.Property{
		"Name":   {Title: []remote.RichText{remote.TextRun(name)}},
		"Points": {Number: num(points)},
	}}
}

func requireValidationError(t *testing.T, err error) *remote.Error {
	t.Helper()
	require.Error(t, err)
	re, ok := remote.AsError(err)
	require.True(t, ok, "expected *remote.Error, got %T: %v", err, err)
	require.Equal(t, remote.CodeValidationError, re.Code)
	return re
}
