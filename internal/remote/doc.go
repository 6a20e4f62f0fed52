// Package remote defines the contract between the translation engine and a
// schema-driven document store, together with the store's native wire types.
//
// Two implementations exist: internal/notion talks to the Notion REST API
// and internal/store keeps records in a local SQLite file. Both return
// *Error for store-side failures.
package remote
