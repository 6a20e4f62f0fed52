// Package native builds the document store's native request bodies from
// annotated statement parts.
//
// FilterBuilder turns WHERE conditions into a single top-level "and" filter.
// PayloadBuilder turns INSERT fields and UPDATE assignments into typed
// property payloads. Both are driven by an injected Config; nothing here
// reads package-level mutable state.
package native
