package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioTables = `
table: Tasks: columns: {
	Name:   "title"
	Points: "number"
}
`

const passingScenario = `name: insert_select
description: "INSERT then SELECT returns the new row"
tables:
  - tables.cue
steps:
  - sql: "INSERT INTO Tasks (Name, Points) VALUES ('alpha', 3)"
  - sql: "SELECT Name FROM Tasks"
    expect:
      count: 1
assertions:
  - type: call_count
    op: create_record
    count: 1
`

const failingScenario = `name: wrong_count
description: "Expects a row that was never inserted"
tables:
  - tables.cue
steps:
  - sql: "SELECT Name FROM Tasks"
    expect:
      count: 2
`

func scenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "tables.cue", scenarioTables)
	for name, content := range scenarios {
		writeFile(t, dir, name, content)
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := runCommand(t, newTestOptions(t), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, _, err := runCommand(t, newTestOptions(t), "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	dir := t.TempDir()

	out, _, err := runCommand(t, newTestOptions(t), "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	out, _, err = runCommand(t, newTestOptions(t), "test", dir, "--format", "json")
	require.NoError(t, err)
	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Scenarios)
}

func TestTestCommandRunsScenarios(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"insert_select.yaml": passingScenario,
		"wrong_count.yaml":   failingScenario,
	})

	out, _, err := runCommand(t, newTestOptions(t), "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)

	byName := map[string]ScenarioResult{}
	for _, s := range result.Scenarios {
		byName[s.Name] = s
	}
	assert.True(t, byName["insert_select"].Pass)
	assert.False(t, byName["wrong_count"].Pass)
	require.NotEmpty(t, byName["wrong_count"].Errors)
	assert.Contains(t, byName["wrong_count"].Errors[0], "expected 2 rows, got 0")
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"insert_select.yaml": passingScenario,
		"wrong_count.yaml":   failingScenario,
	})

	out, _, err := runCommand(t, newTestOptions(t), "test", dir, "--filter", "insert*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ insert_select")
	assert.NotContains(t, out, "wrong_count")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandGoldenFiles(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"insert_select.yaml": passingScenario})
	golden := filepath.Join(dir, "golden", "insert_select.golden")

	out, _, err := runCommand(t, newTestOptions(t), "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ insert_select (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"insert_select"`)
	assert.Contains(t, string(data), `"op":"create_record"`)

	// A second run reproduces the trace exactly.
	out, _, err = runCommand(t, newTestOptions(t), "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All scenarios passed")

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"stale"}`), 0o644))
	out, _, err = runCommand(t, newTestOptions(t), "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestFindScenarioFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{
		"/s/a.yaml", "/s/b.yml", "/s/notes.txt", "/s/nested/c.yaml", "/s/golden/a.golden", "/s/golden/x.yaml",
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte("x"), 0o644))
	}

	files, err := findScenarioFiles(fs, "/s", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/s/a.yaml", "/s/b.yml", "/s/nested/c.yaml"}, files)

	files, err = findScenarioFiles(fs, "/s", "[ab]")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/s/a.yaml", "/s/b.yml"}, files)

	_, err = findScenarioFiles(fs, "/s", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	tests := []struct {
		scenario string
		want     string
	}{
		{"scenarios/insert.yaml", "scenarios/golden/insert.golden"},
		{"/abs/path/delete.yml", "/abs/path/golden/delete.golden"},
	}

	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			assert.Equal(t, tt.want, goldenFilePath(tt.scenario))
		})
	}
}
