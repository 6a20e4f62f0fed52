package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/notiondb/internal/config"
)

func TestConfigSetAndShow(t *testing.T) {
	opts := newTestOptions(t)
	path := filepath.Join(t.TempDir(), "notiondb.yaml")

	for _, kv := range [][2]string{
		{"page_size", "50"},
		{"backend", "LOCAL"},
		{"require_match", "true"},
		{"timeout", "5s"},
		{"tables.Tasks", "db-tasks"},
		{"tables.Notes", "db-notes"},
	} {
		out, _, err := runCommand(t, opts, "config", "set", kv[0], kv[1], "--config", path)
		require.NoError(t, err, kv[0])
		assert.Contains(t, out, kv[0]+" written to "+path)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, yaml.Unmarshal(data, &saved))
	assert.Equal(t, 50, saved["page_size"])
	assert.Equal(t, "local", saved["backend"])
	assert.Equal(t, true, saved["require_match"])
	assert.Equal(t, "5s", saved["timeout"])
	assert.Len(t, saved["tables"], 2)

	out, _, err := runCommand(t, opts, "config", "show", "--config", path, "--format", "json")
	require.NoError(t, err)
	var cfg config.Config
	decodeResponse(t, out, &cfg)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, config.BackendLocal, cfg.Backend)
	assert.True(t, cfg.RequireMatch)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, map[string]string{"tasks": "db-tasks", "notes": "db-notes"}, cfg.Tables)

	out, _, err = runCommand(t, opts, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Config: "+path)
	assert.Contains(t, out, "tables.tasks")
}

func TestConfigSet_Rejects(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"token", "secret", "auth login"},
		{"colour", "blue", `unknown key "colour"`},
		{"page_size", "500", "between 1 and 100"},
		{"page_size", "many", "invalid syntax"},
		{"backend", "sheets", "must be notion or local"},
		{"timeout", "-1s", "must be positive"},
		{"keep_empty_rows", "maybe", "invalid syntax"},
		{"tables.", "db", "table name is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "notiondb.yaml")
			_, _, err := runCommand(t, newTestOptions(t), "config", "set", tt.key, tt.value, "--config", path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)

			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "nothing is written")
		})
	}
}

func TestConfigSet_DefaultsToUserConfig(t *testing.T) {
	opts := newTestOptions(t)

	_, _, err := runCommand(t, opts, "config", "set", "database_id", "db-default")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(opts.HomeDir, ".config", "notiondb", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "database_id: db-default")
}
