// Package engine executes SQL-subset statements against a remote.Store.
//
// An Executor parses each statement, resolves its columns against the
// table schema fetched for that call, builds the native filter or payload
// and issues the store calls:
//
//	INSERT  one create call (ExecuteMany: one per row, fail-fast)
//	SELECT  one query call, projected into a PageResult
//	UPDATE  plan (payload + matched ids), then one patch per matched id
//	DELETE  same plan with an archive payload
//
// Matching for UPDATE and DELETE stops with an error when the store repeats
// a cursor or the page count passes WithMaxPages.
//
// Calls are sequential on the caller's goroutine. Nothing is cached across
// calls and nothing is retried; the first failure aborts the statement and
// is returned as an *Error.
package engine
