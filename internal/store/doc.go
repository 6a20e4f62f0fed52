// Package store is a SQLite-backed remote.Store for offline development
// and tests.
//
// It mirrors the parts of the document-store API the engine uses: tables
// with typed columns, records with title, rich_text and number values,
// filtered and paginated queries, and archive-on-delete. Errors use the same
// remote.Error codes the hosted API returns.
//
// # Ordering
//
// Every query orders by seq ASC, id ASC COLLATE BINARY. seq is assigned
// from the database on insert and never reused, so pagination cursors stay
// valid while records are added.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait on lock contention
//   - foreign_keys=ON
//   - one open connection: SQLite has a single writer
package store
