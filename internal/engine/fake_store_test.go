package engine

import (
	"context"
	"fmt"

	"github.com/roach88/notiondb/internal/remote"
)

// fakeStore serves a fixed schema and pre-built query pages, recording
// every call.
type fakeStore struct {
	schema *remote.TableSchema
	pages  []*remote.QueryResponse

	schemaErr error
	queryErr  error
	// failCreateAt / failPatchAt fail the n-th call (1-based); 0 never fails.
	failCreateAt int
	failPatchAt  int

	schemaCalls int
	creates     []remote.Payload
	queries     []remote.QueryRequest
	patches     map[string]remote.Payload
	patchOrder  []string
}

func newFakeStore(pages ...*remote.QueryResponse) *fakeStore {
	return &fakeStore{
		schema: &remote.TableSchema{
			ID: "db-1",
			Properties: map[string]remote.Column{
				"Name":   {ID: "title", Name: "Name", Type: remote.TypeTitle},
				"Notes":  {ID: "n1", Name: "Notes", Type: remote.TypeRichText},
				"Points": {ID: "p1", Name: "Points", Type: remote.TypeNumber},
				"Done":   {ID: "d1", Name: "Done", Type: "checkbox"},
			},
		},
		pages:   pages,
		patches: map[string]remote.Payload{},
	}
}

func (s *fakeStore) FetchSchema(ctx context.Context, tableRef string) (*remote.TableSchema, error) {
	s.schemaCalls++
	if s.schemaErr != nil {
		return nil, s.schemaErr
	}
	return s.schema, nil
}

func (s *fakeStore) CreateRecord(ctx context.Context, tableRef string, payload remote.Payload) (*remote.Record, error) {
	s.creates = append(s.creates, payload)
	if s.failCreateAt == len(s.creates) {
		return nil, &remote.Error{Status: 400, Code: remote.CodeValidationError, Message: "rejected"}
	}
	return &remote.Record{ID: fmt.Sprintf("rec-%d", len(s.creates))}, nil
}

func (s *fakeStore) QueryRecords(ctx context.Context, tableRef string, req remote.QueryRequest) (*remote.QueryResponse, error) {
	s.queries = append(s.queries, req)
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	idx := len(s.queries) - 1
	if idx >= len(s.pages) {
		return &remote.QueryResponse{}, nil
	}
	return s.pages[idx], nil
}

func (s *fakeStore) PatchRecord(ctx context.Context, recordID string, payload remote.Payload) (*remote.Record, error) {
	s.patchOrder = append(s.patchOrder, recordID)
	if s.failPatchAt == len(s.patchOrder) {
		return nil, &remote.Error{Status: 409, Code: "conflict_error", Message: "conflict"}
	}
	s.patches[recordID] = payload
	return &remote.Record{ID: recordID}, nil
}

func num(n float64) *float64 { return &n }

func page(next string, ids ...string) *remote.QueryResponse {
	resp := &remote.QueryResponse{NextCursor: next, HasMore: next != ""}
	for _, id := range ids {
		resp.Results = append(resp.Results, remote.Record{
			ID: id,
			Properties: map[string]remote.Property{
				"Name":   {Type: remote.TypeTitle, Title: []remote.RichText{remote.TextRun(id)}},
				"Points": {Type: remote.TypeNumber, Number: num(0)},
			},
		})
	}
	return resp
}
