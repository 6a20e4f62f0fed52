// Package schema resolves column names against a table's remote schema and
// annotates parsed fields and conditions with the column id and type.
package schema

import (
	"context"
	"fmt"

	"github.com/roach88/notiondb/internal/remote"
)

// Resolver fetches table schemas. It holds no cache: every Resolve is one
// remote read.
type Resolver struct {
	store remote.Store
}

// NewResolver creates a resolver backed by store.
func NewResolver(store remote.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve fetches the schema of tableRef.
func (r *Resolver) Resolve(ctx context.Context, tableRef string) (*remote.TableSchema, error) {
	s, err := r.store.FetchSchema(ctx, tableRef)
	if err != nil {
		return nil, fmt.Errorf("fetch schema of %s: %w", tableRef, err)
	}
	if s == nil {
		return nil, fmt.Errorf("fetch schema of %s: store returned no schema", tableRef)
	}
	if s.Properties == nil {
		s.Properties = map[string]remote.Column{}
	}
	return s, nil
}
