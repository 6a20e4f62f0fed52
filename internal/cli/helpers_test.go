package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notiondb/internal/config"
)

const tasksCUE = `
table: Tasks: {
	description: "Work items"
	columns: {
		Name:   "title"
		Notes:  "rich_text"
		Points: "number"
	}
	rows: [
		{Name: "alpha", Points: 3},
		{Name: "beta", Points: 5},
		{Name: "gamma", Points: 1},
	]
}
`

// response mirrors CLIResponse with the payload left undecoded.
type response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// newTestOptions isolates a command from the user's config, keyring and
// terminal.
func newTestOptions(t *testing.T) *RootOptions {
	t.Helper()
	return &RootOptions{
		Fs:      afero.NewOsFs(),
		Tokens:  config.NewKeyringStore(keyring.NewArrayKeyring(nil)),
		WorkDir: t.TempDir(),
		HomeDir: t.TempDir(),
		Prompt: func(string) (string, error) {
			return "", errors.New("unexpected prompt")
		},
	}
}

func runCommand(t *testing.T, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommandWithOptions(opts)
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decodeResponse(t *testing.T, out string, data any) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if data != nil && resp.Data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

// seededDB seeds tasksCUE into a fresh local database and returns its path.
func seededDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	tables := writeFile(t, dir, "tables.cue", tasksCUE)
	db := filepath.Join(dir, "tasks.db")

	_, _, err := runCommand(t, newTestOptions(t), "seed", tables, "--db", db)
	require.NoError(t, err)
	return db
}

// local runs a command against db with JSON output.
func local(t *testing.T, db string, args ...string) (response, string, error) {
	t.Helper()
	args = append(args, "--backend", "local", "--db", db, "--format", "json")
	out, _, err := runCommand(t, newTestOptions(t), args...)
	if out == "" {
		return response{}, out, err
	}
	var resp response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp, out, err
}
