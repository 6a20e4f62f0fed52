package notion

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/remote"
)

type captured struct {
	method  string
	path    string
	headers http.Header
	body    map[string]any
}

func newTestClient(t *testing.T, status int, response string) (*Client, *captured) {
	t.Helper()

	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.headers = r.Header.Clone()
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &got.body))
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	c := New("secret-token",
		WithBaseURL(srv.URL),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return c, got
}

func TestClient_Headers(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"id":"db-1","properties":{}}`)

	_, err := c.FetchSchema(context.Background(), "db-1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", got.headers.Get("Authorization"))
	assert.Equal(t, "2022-06-28", got.headers.Get("Notion-Version"))
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
}

func TestClient_FetchSchema(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{
		"object": "database",
		"id": "db-1",
		"title": [{"type": "text", "text": {"content": "Tasks", "link": null}, "plain_text": "Tasks"}],
		"properties": {
			"Name": {"id": "title", "name": "Name", "type": "title", "title": {}},
			"Points": {"id": "a%3Bc", "name": "Points", "type": "number", "number": {"format": "number"}}
		}
	}`)

	s, err := c.FetchSchema(context.Background(), "db-1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/v1/databases/db-1", got.path)
	assert.Equal(t, "Tasks", s.Name())
	assert.Equal(t, []string{"Name", "Points"}, s.Columns())
	assert.Equal(t, remote.Column{ID: "a%3Bc", Name: "Points", Type: "number"}, s.Properties["Points"])
}

func TestClient_CreateRecord(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"object":"page","id":"page-1","properties":{}}`)

	rec, err := c.CreateRecord(context.Background(), "db-1", remote.Payload{
		Properties: map[string]remote.Property{
			"Name": {Title: []remote.RichText{remote.TextRun("Write")}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "page-1", rec.ID)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/v1/pages", got.path)
	assert.Equal(t, map[string]any{"database_id": "db-1"}, got.body["parent"], "missing parent is filled from the table ref")
}

func TestClient_QueryRecords(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{
		"object": "list",
		"results": [{
			"id": "page-1",
			"created_time": "2026-01-01T00:00:00.000Z",
			"last_edited_time": "2026-01-01T00:00:00.000Z",
			"properties": {"Points": {"id": "p", "type": "number", "number": 3}}
		}],
		"next_cursor": "cur-2",
		"has_more": true
	}`)

	resp, err := c.QueryRecords(context.Background(), "db-1", remote.QueryRequest{
		Filter: &remote.Filter{And: []remote.FilterClause{
			{Property: "Points", Type: "number", Operator: "greater_than", Value: ir.IRInt(1)},
		}},
		PageSize: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/databases/db-1/query", got.path)
	assert.Equal(t, float64(20), got.body["page_size"])
	assert.NotContains(t, got.body, "start_cursor")
	assert.Equal(t, map[string]any{"and": []any{
		map[string]any{"property": "Points", "number": map[string]any{"greater_than": float64(1)}},
	}}, got.body["filter"])

	require.Len(t, resp.Results, 1)
	assert.Equal(t, 3.0, *resp.Results[0].Properties["Points"].Number)
	assert.Equal(t, "cur-2", resp.NextCursor)
	assert.True(t, resp.HasMore)
}

func TestClient_PatchRecord(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{"object":"page","id":"page-1","archived":true,"properties":{}}`)

	archived := true
	rec, err := c.PatchRecord(context.Background(), "page-1", remote.Payload{Archived: &archived})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, "/v1/pages/page-1", got.path)
	assert.Equal(t, map[string]any{"archived": true}, got.body)
	assert.True(t, rec.Archived)
}

func TestClient_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{
			name:     "notion error body",
			status:   http.StatusNotFound,
			body:     `{"object":"error","status":404,"code":"object_not_found","message":"Could not find database with ID: db-1."}`,
			expected: "Notion API Error (404): Could not find database with ID: db-1. (object_not_found)",
		},
		{
			name:     "missing fields",
			status:   http.StatusBadRequest,
			body:     `{}`,
			expected: "Notion API Error (400): Unknown Notion API Error (Unknown Code)",
		},
		{
			name:     "not json",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			expected: "Notion API Error (502): Unable to parse (Unknown Code)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, tc.status, tc.body)

			_, err := c.FetchSchema(context.Background(), "db-1")
			require.Error(t, err)

			re, ok := remote.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.status, re.Status)
			assert.Equal(t, tc.expected, err.Error())
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	c := New("t", WithBaseURL("http://127.0.0.1:1"), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := c.FetchSchema(context.Background(), "db-1")
	re, ok := remote.AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTransportError, re.Code)
}

func TestClient_SearchDatabases(t *testing.T) {
	c, got := newTestClient(t, http.StatusOK, `{
		"object": "list",
		"results": [{
			"object": "database",
			"id": "db-1",
			"created_by": {"object": "user", "id": "u-1"},
			"last_edited_by": {"object": "user", "id": "u-2"},
			"last_edited_time": "2026-02-01T00:00:00.000Z",
			"title": [{"type": "text", "text": {"content": "Tasks"}, "plain_text": "Tasks"}],
			"description": [],
			"properties": {"Points": {"id": "p", "name": "Points", "type": "number"}, "Name": {"id": "title", "name": "Name", "type": "title"}}
		}],
		"next_cursor": null,
		"has_more": false
	}`)

	list, err := c.SearchDatabases(context.Background(), "cur-1", 10)
	require.NoError(t, err)

	assert.Equal(t, "/v1/search", got.path)
	assert.Equal(t, map[string]any{"value": "database", "property": "object"}, got.body["filter"])
	assert.Equal(t, float64(10), got.body["page_size"])
	assert.Equal(t, "cur-1", got.body["start_cursor"])

	require.Len(t, list.Results, 1)
	db := list.Results[0]
	assert.Equal(t, "db-1", db.ID)
	assert.Equal(t, "Tasks", db.Title)
	assert.Empty(t, db.Description)
	assert.Equal(t, "u-2", db.LastEditedBy.ID)
	assert.Equal(t, []string{"Name", "Points"}, db.Properties)
	assert.False(t, list.HasMore)
	assert.Empty(t, list.NextCursor)
}
