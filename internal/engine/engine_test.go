package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/native"
	"github.com/roach88/notiondb/internal/project"
	"github.com/roach88/notiondb/internal/remote"
)

func newExecutor(s remote.Store, opts ...Option) *Executor {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(s, opts...)
}

func TestExecute_Insert(t *testing.T) {
	s := newFakeStore()
	e := newExecutor(s)

	page, err := e.Execute(context.Background(), "INSERT INTO tasks (Name, Points, Done, Missing) VALUES ('Write', 3, 'yes', 'x')")
	require.NoError(t, err)
	assert.Nil(t, page)

	require.Len(t, s.creates, 1)
	payload := s.creates[0]
	require.NotNil(t, payload.Parent)
	assert.Equal(t, "db-1", payload.Parent.DatabaseID)
	assert.Len(t, payload.Properties, 2, "checkbox and unknown columns are omitted")
	assert.Equal(t, "Write", remote.PlainText(payload.Properties["Name"].Title))
	assert.Equal(t, 3.0, *payload.Properties["Points"].Number)
}

func TestExecute_InsertWithParams(t *testing.T) {
	s := newFakeStore()
	e := newExecutor(s)

	_, err := e.Execute(context.Background(), "INSERT INTO tasks (Name, Points) VALUES (%s, %s)", "it's, done", 4)
	require.NoError(t, err)

	require.Len(t, s.creates, 1)
	assert.Equal(t, "it's, done", remote.PlainText(s.creates[0].Properties["Name"].Title))
}

func TestExecute_QuotedParamMatchesInsertedValue(t *testing.T) {
	s := newFakeStore(page(""), page(""))
	e := newExecutor(s)
	ctx := context.Background()

	_, err := e.Execute(ctx, "INSERT INTO tasks (Name) VALUES (%s)", "'quoted'")
	require.NoError(t, err)
	require.Len(t, s.creates, 1)
	stored := remote.PlainText(s.creates[0].Properties["Name"].Title)
	assert.Equal(t, "'quoted'", stored)

	_, err = e.Execute(ctx, "SELECT * FROM tasks WHERE Name = %s", "'quoted'")
	require.NoError(t, err)
	require.Len(t, s.queries, 1)
	assert.Equal(t, ir.IRString(stored), s.queries[0].Filter.And[0].Value)

	_, err = e.Execute(ctx, "UPDATE tasks SET Notes = %s WHERE Name = %s", "done", "'quoted'")
	require.NoError(t, err)
	require.Len(t, s.queries, 2)
	assert.Equal(t, ir.IRString(stored), s.queries[1].Filter.And[0].Value)
}

func TestExecute_SelectDefaultPageSize(t *testing.T) {
	s := newFakeStore(page(""))
	e := newExecutor(s)

	_, err := e.Execute(context.Background(), "SELECT * FROM tasks WHERE Points > 5")
	require.NoError(t, err)

	require.Len(t, s.queries, 1)
	assert.Equal(t, 20, s.queries[0].PageSize)
	require.Len(t, s.queries[0].Filter.And, 1)
	assert.Equal(t, remote.FilterClause{Property: "Points", Type: "number", Operator: "greater_than", Value: ir.IRInt(5)}, s.queries[0].Filter.And[0])
}

func TestExecute_SelectPageSizeNotInFilter(t *testing.T) {
	s := newFakeStore(page(""))
	e := newExecutor(s)

	_, err := e.Execute(context.Background(), "SELECT Name FROM tasks WHERE Name = 'a' AND page_size = 5")
	require.NoError(t, err)

	req := s.queries[0]
	assert.Equal(t, 5, req.PageSize)
	require.Len(t, req.Filter.And, 1)
	assert.Equal(t, "Name", req.Filter.And[0].Property)
}

func TestExecute_SelectProjects(t *testing.T) {
	resp := page("cur-2", "a", "b")
	resp.Results[1].Properties["Points"] = remote.Property{Type: remote.TypeNumber, Number: num(7)}
	s := newFakeStore(resp)
	e := newExecutor(s)

	result, err := e.Execute(context.Background(), "SELECT Points FROM tasks")
	require.NoError(t, err)

	require.Len(t, result.Data, 1, "the row whose only column is 0 is dropped")
	assert.Equal(t, int64(7), result.Data[0]["points"])
	assert.Equal(t, "cur-2", result.NextCursor)
	assert.True(t, result.HasMore)
}

func TestExecute_SelectKeepAllRows(t *testing.T) {
	s := newFakeStore(page("", "a", "b"))
	e := newExecutor(s, WithRowPolicy(project.KeepAllRows))

	result, err := e.Execute(context.Background(), "SELECT Points FROM tasks")
	require.NoError(t, err)
	assert.Len(t, result.Data, 2)
}

func TestSelect_Cursor(t *testing.T) {
	s := newFakeStore(page(""))
	e := newExecutor(s)

	_, err := e.Select(context.Background(), "SELECT * FROM tasks", "cur-9")
	require.NoError(t, err)
	assert.Equal(t, "cur-9", s.queries[0].StartCursor)

	_, err = e.Select(context.Background(), "DELETE FROM tasks WHERE Points = 1", "")
	assert.True(t, IsUnsupported(err))
}

func TestExecute_UpdatePatchesEveryMatch(t *testing.T) {
	s := newFakeStore(page("cur-2", "a", "b"), page("", "c"))
	e := newExecutor(s)

	_, err := e.Execute(context.Background(), "UPDATE tasks SET Notes = 'done' AND Points = 8 WHERE Points < 3")
	require.NoError(t, err)

	assert.Equal(t, 1, s.schemaCalls, "schema is fetched once per statement")
	require.Len(t, s.queries, 2, "every result page is walked")
	assert.Equal(t, "cur-2", s.queries[1].StartCursor)

	assert.Equal(t, []string{"a", "b", "c"}, s.patchOrder)
	for _, id := range s.patchOrder {
		patch := s.patches[id]
		assert.Nil(t, patch.Parent, "patch payloads carry no parent")
		assert.Equal(t, "done", remote.PlainText(patch.Properties["Notes"].RichText))
		assert.Equal(t, 8.0, *patch.Properties["Points"].Number)
	}
}

func TestExecute_UpdateZeroRows(t *testing.T) {
	s := newFakeStore(page(""))
	e := newExecutor(s)

	_, err := e.Execute(context.Background(), "UPDATE tasks SET Points = 1 WHERE Name = 'nobody'")
	require.NoError(t, err)
	assert.Empty(t, s.patchOrder)
}

func TestExecute_UpdateZeroRowsRequireMatch(t *testing.T) {
	s := newFakeStore(page(""))
	e := newExecutor(s, WithRequireMatch(true))

	_, err := e.Execute(context.Background(), "UPDATE tasks SET Points = 1 WHERE Name = 'nobody'")
	require.Error(t, err)
	assert.True(t, IsNoRowsMatched(err))
	assert.Empty(t, s.patchOrder)
}

func TestExecute_UpdateStopsAtFirstPatchFailure(t *testing.T) {
	s := newFakeStore(page("", "a", "b", "c"))
	s.failPatchAt = 2
	e := newExecutor(s)

	_, err := e.Execute(context.Background(), "UPDATE tasks SET Points = 1 WHERE Points = 0")
	require.Error(t, err)
	assert.True(t, IsRemoteError(err))

	var re *remote.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 409, re.Status)
	assert.Equal(t, []string{"a", "b"}, s.patchOrder)
}

func TestExecute_DeleteArchives(t *testing.T) {
	s := newFakeStore(page("", "a"))
	e := newExecutor(s)

	_, err := e.Execute(context.Background(), "DELETE FROM tasks WHERE Name = 'a'")
	require.NoError(t, err)

	require.Contains(t, s.patches, "a")
	assert.Equal(t, native.ArchivePayload(), s.patches["a"])
}

func TestPlan_DoesNotPatch(t *testing.T) {
	s := newFakeStore(page("", "a", "b"))
	e := newExecutor(s)

	plan, err := e.Plan(context.Background(), "UPDATE tasks SET Done = 'yes' AND Points = %s WHERE Points = 0", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, plan.MatchedIDs)
	assert.Len(t, plan.Outcomes, 2)
	assert.Len(t, plan.Payload.Properties, 1)
	assert.Empty(t, s.patchOrder)

	_, err = e.Plan(context.Background(), "SELECT * FROM tasks")
	assert.True(t, IsUnsupported(err))
}

func TestExecuteMany_FailFast(t *testing.T) {
	s := newFakeStore()
	s.failCreateAt = 2
	e := newExecutor(s)

	err := e.ExecuteMany(context.Background(), "INSERT INTO tasks (Name, Points) VALUES (%s, %s)", [][]any{
		{"one", 1},
		{"two", 2},
		{"three", 3},
	})
	require.Error(t, err)
	assert.True(t, IsRemoteError(err))

	assert.Len(t, s.creates, 2, "the third row is never attempted")
	assert.Equal(t, 1, s.schemaCalls)
}

func TestExecuteMany_AllRows(t *testing.T) {
	s := newFakeStore()
	e := newExecutor(s)

	err := e.ExecuteMany(context.Background(), "INSERT INTO tasks (Name) VALUES (%s)", [][]any{{"a"}, {"b"}})
	require.NoError(t, err)
	require.Len(t, s.creates, 2)
	assert.Equal(t, "b", remote.PlainText(s.creates[1].Properties["Name"].Title))
}

func TestExecuteMany_RejectsNonInsert(t *testing.T) {
	e := newExecutor(newFakeStore())

	err := e.ExecuteMany(context.Background(), "SELECT * FROM tasks", [][]any{{1}})
	assert.True(t, IsUnsupported(err))
}

func TestExecuteMany_RowArity(t *testing.T) {
	s := newFakeStore()
	e := newExecutor(s)

	err := e.ExecuteMany(context.Background(), "INSERT INTO tasks (Name) VALUES (%s)", [][]any{{"a"}, {"b", "c"}})
	assert.True(t, IsParseError(err))
	assert.Len(t, s.creates, 1)
}

func TestExecute_ErrorTaxonomy(t *testing.T) {
	testCases := []struct {
		name  string
		sql   string
		check func(error) bool
	}{
		{"unknown statement", "DROP TABLE t", IsUnsupported},
		{"arity mismatch", "INSERT INTO tasks (Name, Points) VALUES ('a')", IsParseError},
		{"or connective", "SELECT * FROM tasks WHERE Points = 1 OR Points = 2", IsUnsupported},
		{"unresolved filter column", "SELECT * FROM tasks WHERE Owner = 'me'", IsUnresolvedColumn},
		{"bad page size", "SELECT * FROM tasks WHERE page_size = 'many'", IsParseError},
		{"non-integer number", "INSERT INTO tasks (Points) VALUES ('lots')", IsParseError},
		{"unresolved update where", "UPDATE tasks SET Points = 1 WHERE Owner = 'me'", IsUnresolvedColumn},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newFakeStore(page(""))
			_, err := newExecutor(s).Execute(context.Background(), tc.sql)
			require.Error(t, err)
			assert.True(t, tc.check(err), "unexpected error: %v", err)
			assert.Empty(t, s.creates)
			assert.Empty(t, s.patchOrder)
		})
	}
}

func TestExecute_ParseErrorsBeforeRemoteCalls(t *testing.T) {
	s := newFakeStore()
	_, err := newExecutor(s).Execute(context.Background(), "INSERT INTO tasks (Name) VALUES ('a', 'b')")
	require.Error(t, err)
	assert.Zero(t, s.schemaCalls)
}

func TestExecute_RemoteSchemaError(t *testing.T) {
	s := newFakeStore()
	s.schemaErr = remote.NotFound("Could not find database with ID: %s", "db-1")

	_, err := newExecutor(s).Execute(context.Background(), "SELECT * FROM tasks")
	require.Error(t, err)
	assert.True(t, IsRemoteError(err))
	assert.True(t, remote.IsNotFound(err))
}

func TestTableRef(t *testing.T) {
	e := newExecutor(newFakeStore(), WithTables(map[string]string{"Tasks": "db-tasks"}, "db-default"))

	assert.Equal(t, "db-tasks", e.TableRef("Tasks"))
	assert.Equal(t, "db-tasks", e.TableRef("tasks"))
	assert.Equal(t, "db-default", e.TableRef("other"))

	bare := newExecutor(newFakeStore())
	assert.Equal(t, "tasks", bare.TableRef("tasks"))
}

func TestWithConfig_PageSize(t *testing.T) {
	cfg := native.DefaultConfig()
	cfg.DefaultPageSize = 50
	s := newFakeStore(page(""))

	_, err := newExecutor(s, WithConfig(cfg)).Execute(context.Background(), "SELECT * FROM tasks")
	require.NoError(t, err)
	assert.Equal(t, 50, s.queries[0].PageSize)
}
