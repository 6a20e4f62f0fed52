package remote

import (
	"encoding/json"
	"sort"

	"github.com/roach88/notiondb/internal/ir"
)

// Property types with an encoder and decoder.
const (
	TypeTitle    = "title"
	TypeRichText = "rich_text"
	TypeNumber   = "number"
)

// Column is one property definition of a table.
type Column struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableSchema maps column names (case-sensitive) to their definitions.
type TableSchema struct {
	ID         string            `json:"id"`
	Title      []RichText        `json:"title,omitempty"`
	Properties map[string]Column `json:"properties"`
}

// Column looks up a column by its exact name.
func (s *TableSchema) Column(name string) (Column, bool) {
	if s == nil {
		return Column{}, false
	}
	col, ok := s.Properties[name]
	return col, ok
}

// Columns returns the column names in sorted order.
func (s *TableSchema) Columns() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the plain-text table title.
func (s *TableSchema) Name() string {
	if s == nil {
		return ""
	}
	return PlainText(s.Title)
}

// TextContent is the content of a text run.
type TextContent struct {
	Content string `json:"content"`
}

// RichText is a single text run.
type RichText struct {
	Type      string       `json:"type"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text"`
}

// TextRun builds a text run carrying s as both content and display text.
func TextRun(s string) RichText {
	return RichText{
		Type:      "text",
		Text:      &TextContent{Content: s},
		PlainText: s,
	}
}

// PlainText returns the display text of the first run, or "".
func PlainText(runs []RichText) string {
	if len(runs) == 0 {
		return ""
	}
	return runs[0].PlainText
}

// Property is a typed property value, used both in records and in payloads.
type Property struct {
	ID       string     `json:"id,omitempty"`
	Type     string     `json:"type,omitempty"`
	Title    []RichText `json:"title,omitempty"`
	RichText []RichText `json:"rich_text,omitempty"`
	Number   *float64   `json:"number,omitempty"`
}

// Record is one row of a table as the store returns it.
type Record struct {
	Object         string              `json:"object,omitempty"`
	ID             string              `json:"id"`
	CreatedTime    string              `json:"created_time"`
	LastEditedTime string              `json:"last_edited_time"`
	Archived       bool                `json:"archived,omitempty"`
	Parent         *Parent             `json:"parent,omitempty"`
	Properties     map[string]Property `json:"properties"`
}

// Parent references the table a record belongs to.
type Parent struct {
	Type       string `json:"type,omitempty"`
	DatabaseID string `json:"database_id"`
}

// Payload is the body of a create or patch call.
type Payload struct {
	Parent     *Parent             `json:"parent,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
	Archived   *bool               `json:"archived,omitempty"`
}

// FilterClause is one property comparison:
// {"property": P, "<type>": {"<operator>": value}}.
type FilterClause struct {
	Property string
	Type     string
	Operator string
	Value    ir.IRValue
}

// MarshalJSON renders the clause in the store's nested form.
func (c FilterClause) MarshalJSON() ([]byte, error) {
	return json.Marshal(ir.IRObject{
		"property": ir.IRString(c.Property),
		c.Type: ir.IRObject{
			c.Operator: c.Value,
		},
	})
}

// Filter is a conjunction of clauses. It always marshals an "and" list,
// possibly empty.
type Filter struct {
	And []FilterClause `json:"and"`
}

// MarshalJSON keeps an empty filter as {"and": []}.
func (f Filter) MarshalJSON() ([]byte, error) {
	and := f.And
	if and == nil {
		and = []FilterClause{}
	}
	return json.Marshal(struct {
		And []FilterClause `json:"and"`
	}{and})
}

// QueryRequest is the body of a query call.
type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}

// QueryResponse is one page of query results.
type QueryResponse struct {
	Results    []Record `json:"results"`
	NextCursor string   `json:"next_cursor,omitempty"`
	HasMore    bool     `json:"has_more"`
}

// UserRef identifies the user that created or edited an object.
type UserRef struct {
	Object string `json:"object,omitempty"`
	ID     string `json:"id"`
}

// DatabaseInfo summarizes one table returned by a search.
type DatabaseInfo struct {
	ID             string   `json:"id"`
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	CreatedBy      *UserRef `json:"created_by,omitempty"`
	LastEditedBy   *UserRef `json:"last_edited_by,omitempty"`
	LastEditedTime string   `json:"last_edited_time,omitempty"`
	Properties     []string `json:"properties"`
}

// DatabaseList is one page of search results.
type DatabaseList struct {
	Results    []DatabaseInfo `json:"results"`
	HasMore    bool           `json:"has_more"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
