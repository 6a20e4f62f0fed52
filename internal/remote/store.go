package remote

import "context"

// Store is the collaborator every statement is translated against.
//
// All methods block until the store answers. Implementations must not retry;
// failures are returned to the caller as they happened.
type Store interface {
	// FetchSchema returns the column metadata of a table.
	FetchSchema(ctx context.Context, tableRef string) (*TableSchema, error)

	// CreateRecord creates one record in tableRef.
	CreateRecord(ctx context.Context, tableRef string, payload Payload) (*Record, error)

	// QueryRecords returns one page of records matching req.Filter.
	QueryRecords(ctx context.Context, tableRef string, req QueryRequest) (*QueryResponse, error)

	// PatchRecord updates the properties (or archived flag) of one record.
	PatchRecord(ctx context.Context, recordID string, payload Payload) (*Record, error)
}

// Searcher is implemented by stores that can list the tables visible to
// the caller.
type Searcher interface {
	SearchDatabases(ctx context.Context, cursor string, pageSize int) (*DatabaseList, error)
}
