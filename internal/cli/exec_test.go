package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notiondb/internal/engine"
	"github.com/roach88/notiondb/internal/project"
)

func selectNames(t *testing.T, db, sql string, extra ...string) *project.PageResult {
	t.Helper()
	resp, out, err := local(t, db, append([]string{"exec", sql}, extra...)...)
	require.NoError(t, err, out)
	require.Equal(t, "ok", resp.Status)

	var page project.PageResult
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	return &page
}

func names(page *project.PageResult) []string {
	out := make([]string, len(page.Data))
	for i, row := range page.Data {
		out[i], _ = row["name"].(string)
	}
	return out
}

func TestExec_SelectWithParams(t *testing.T) {
	db := seededDB(t)

	page := selectNames(t, db, "SELECT Name, Points FROM Tasks WHERE Points > %s", "2")
	assert.Equal(t, []string{"alpha", "beta"}, names(page))
	assert.False(t, page.HasMore)
	for _, row := range page.Data {
		assert.Contains(t, row, "id")
		assert.Contains(t, row, "created_time")
		assert.Contains(t, row, "last_edited_time")
	}
}

func TestExec_WriteStatements(t *testing.T) {
	db := seededDB(t)

	resp, out, err := local(t, db, "exec", "INSERT INTO Tasks (Name, Points) VALUES (%s, %s)", "delta", "7")
	require.NoError(t, err, out)
	var result ExecResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "insert", result.Statement)

	_, out, err = local(t, db, "exec", "UPDATE Tasks SET Points = 10 WHERE Name = 'alpha'")
	require.NoError(t, err, out)

	page := selectNames(t, db, "SELECT Name FROM Tasks WHERE Points >= 7")
	assert.Equal(t, []string{"alpha", "delta"}, names(page))

	_, out, err = local(t, db, "exec", "DELETE FROM Tasks WHERE Points < 4")
	require.NoError(t, err, out)

	page = selectNames(t, db, "SELECT Name FROM Tasks")
	assert.Equal(t, []string{"alpha", "beta", "delta"}, names(page))
}

func TestExec_DryRunPatchesNothing(t *testing.T) {
	db := seededDB(t)

	resp, out, err := local(t, db, "exec", "DELETE FROM Tasks WHERE Points < %s", "4", "--dry-run")
	require.NoError(t, err, out)

	var plan engine.UpdatePlan
	require.NoError(t, json.Unmarshal(resp.Data, &plan))
	assert.EqualValues(t, "delete", plan.Kind)
	assert.Equal(t, "Tasks", plan.Table)
	assert.Len(t, plan.MatchedIDs, 2)
	require.NotNil(t, plan.Payload.Archived)
	assert.True(t, *plan.Payload.Archived)

	page := selectNames(t, db, "SELECT Name FROM Tasks")
	assert.Len(t, page.Data, 3)
}

func TestExec_Cursor(t *testing.T) {
	db := seededDB(t)
	sql := "SELECT Name FROM Tasks WHERE page_size = 2"

	first := selectNames(t, db, sql)
	assert.Equal(t, []string{"alpha", "beta"}, names(first))
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	second := selectNames(t, db, sql, "--cursor", first.NextCursor)
	assert.Equal(t, []string{"gamma"}, names(second))
	assert.False(t, second.HasMore)
}

func TestExec_Batch(t *testing.T) {
	db := seededDB(t)
	batch := writeFile(t, t.TempDir(), "rows.yaml", "- [delta, 7]\n- [epsilon, 8]\n")

	resp, out, err := local(t, db, "exec", "INSERT INTO Tasks (Name, Points) VALUES (%s, %s)", "--batch", batch)
	require.NoError(t, err, out)
	var result ExecResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, ExecResult{Statement: "insert", Rows: 2}, result)

	page := selectNames(t, db, "SELECT Name FROM Tasks WHERE Points > 6")
	assert.Equal(t, []string{"delta", "epsilon"}, names(page))
}

func TestExec_Errors(t *testing.T) {
	db := seededDB(t)

	tests := []struct {
		name string
		sql  string
		code string
	}{
		{"unresolved column", "SELECT Name FROM Tasks WHERE Owner = 'sam'", string(engine.ErrCodeUnresolvedColumn)},
		{"unsupported", "DROP TABLE Tasks", string(engine.ErrCodeUnsupported)},
		{"missing table", "SELECT Name FROM Nowhere", string(engine.ErrCodeRemote)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out, err := local(t, db, "exec", tt.sql)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Equal(t, "error", resp.Status, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestExec_FlagConflicts(t *testing.T) {
	db := filepath.Join(t.TempDir(), "unused.db")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"batch with params", []string{"exec", "INSERT INTO Tasks (Name) VALUES (%s)", "a", "--batch", "rows.yaml"}, "exclusive"},
		{"cursor with params", []string{"exec", "SELECT Name FROM Tasks WHERE Name = %s", "a", "--cursor", "2"}, "--cursor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := local(t, db, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExec_TextOutput(t *testing.T) {
	db := seededDB(t)

	out, _, err := runCommand(t, newTestOptions(t), "exec", "SELECT Name FROM Tasks WHERE Points = 5", "--backend", "local", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "beta")
	assert.NotContains(t, out, "alpha")

	out, _, err = runCommand(t, newTestOptions(t), "exec", "UPDATE Tasks SET Notes = 'x' WHERE Name = 'beta'", "--backend", "local", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "✓ update\n", out)
}

func TestParseParams(t *testing.T) {
	assert.Equal(t,
		[]any{int64(2), "alpha", "-3x", int64(-4), "2.5"},
		parseParams([]string{"2", "alpha", "-3x", "-4", "2.5"}))
}
