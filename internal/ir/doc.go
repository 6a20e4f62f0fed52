// Package ir provides the value model shared by the statement IR, the native
// filter/payload builders and the stores.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - SQL literals are either integers or strings (ParseLiteral)
//   - NO float types in statement values; remote numbers are decoded by the
//     result projector, never round-tripped through IR
//   - IRObject keys serialize in sorted order so native payloads and filters
//     render byte-identically across runs
package ir
