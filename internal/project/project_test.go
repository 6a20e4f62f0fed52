package project

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/native"
	"github.com/roach88/notiondb/internal/queryir"
	"github.com/roach88/notiondb/internal/remote"
	"github.com/roach88/notiondb/internal/schema"
)

func number(n float64) *float64 { return &n }

func record(id string, props map[string]remote.Property) remote.Record {
	return remote.Record{
		ID:             id,
		CreatedTime:    "2026-01-01T00:00:00.000Z",
		LastEditedTime: "2026-01-02T00:00:00.000Z",
		Properties:     props,
	}
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name string
		prop remote.Property
		want any
	}{
		{"title", remote.Property{Type: "title", Title: []remote.RichText{remote.TextRun("a"), remote.TextRun("b")}}, "a"},
		{"empty title", remote.Property{Type: "title"}, ""},
		{"rich text", remote.Property{Type: "rich_text", RichText: []remote.RichText{remote.TextRun("note")}}, "note"},
		{"integer", remote.Property{Type: "number", Number: number(3)}, int64(3)},
		{"fraction", remote.Property{Type: "number", Number: number(2.5)}, 2.5},
		{"absent number", remote.Property{Type: "number"}, nil},
		{"checkbox", remote.Property{Type: "checkbox"}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decode(tc.prop))
		})
	}
}

func TestProject_KeysAndMetadata(t *testing.T) {
	resp := &remote.QueryResponse{
		Results: []remote.Record{
			record("r1", map[string]remote.Property{
				"Name":   {Type: "title", Title: []remote.RichText{remote.TextRun("Write")}},
				"Points": {Type: "number", Number: number(5)},
			}),
		},
		NextCursor: "cursor-2",
		HasMore:    true,
	}

	page := Projector{}.Project(resp, []string{"Name", "Points", "Missing"})
	require.Len(t, page.Data, 1)

	assert.Equal(t, Row{
		"name":             "Write",
		"points":           int64(5),
		"missing":          nil,
		"id":               "r1",
		"created_time":     "2026-01-01T00:00:00.000Z",
		"last_edited_time": "2026-01-02T00:00:00.000Z",
	}, page.Data[0])
	assert.Equal(t, "cursor-2", page.NextCursor)
	assert.True(t, page.HasMore)
}

// A record whose requested columns are all zero or empty is dropped under
// the default policy even though it exists remotely.
func TestProject_DropsFalsyRowsByDefault(t *testing.T) {
	resp := &remote.QueryResponse{
		Results: []remote.Record{
			record("zero", map[string]remote.Property{"Points": {Type: "number", Number: number(0)}}),
			record("empty", map[string]remote.Property{"Points": {Type: "number"}}),
			record("five", map[string]remote.Property{"Points": {Type: "number", Number: number(5)}}),
		},
	}

	dropped := Projector{}.Project(resp, []string{"Points"})
	require.Len(t, dropped.Data, 1)
	assert.Equal(t, "five", dropped.Data[0]["id"])

	kept := Projector{Policy: KeepAllRows}.Project(resp, []string{"Points"})
	assert.Len(t, kept.Data, 3)
}

func TestProject_EmptyTitleDropped(t *testing.T) {
	resp := &remote.QueryResponse{
		Results: []remote.Record{
			record("blank", map[string]remote.Property{"Name": {Type: "title", Title: []remote.RichText{remote.TextRun("")}}}),
		},
	}

	assert.Empty(t, Projector{}.Project(resp, []string{"Name"}).Data)
}

func TestProject_NilResponse(t *testing.T) {
	page := Projector{}.Project(nil, []string{"a"})
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)

	data, err := json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"has_more":false}`, string(data))
}

func TestProject_RoundTrip(t *testing.T) {
	cfg := native.DefaultConfig()
	tbl := &remote.TableSchema{
		Properties: map[string]remote.Column{
			"Name":   {ID: "title", Name: "Name", Type: "title"},
			"Notes":  {ID: "n", Name: "Notes", Type: "rich_text"},
			"Points": {ID: "p", Name: "Points", Type: "number"},
		},
	}
	fields := schema.AnnotateFields([]queryir.Field{
		{Property: "Name", Value: "Write docs"},
		{Property: "Notes", Value: "it's, fine"},
		{Property: "Points", Value: "42"},
	}, tbl, cfg)

	payload, _, err := native.NewPayloadBuilder(cfg).Build("db", fields)
	require.NoError(t, err)

	// Decode works on the declared type the store echoes back.
	props := map[string]remote.Property{}
	for name, p := range payload.Properties {
		p.Type = tbl.Properties[name].Type
		props[name] = p
	}

	page := Projector{}.Project(&remote.QueryResponse{Results: []remote.Record{record("r", props)}}, tbl.Columns())
	require.Len(t, page.Data, 1)

	row := page.Data[0]
	assert.Equal(t, "Write docs", row["name"])
	assert.Equal(t, "it's, fine", row["notes"])
	assert.Equal(t, int64(42), row["points"])
	assert.Equal(t, ir.IRString("Write docs"), fields[0].Value)
}

func TestEmptyRowPolicy_String(t *testing.T) {
	assert.Equal(t, "drop", DropFalsyRows.String())
	assert.Equal(t, "keep", KeepAllRows.String())
}
