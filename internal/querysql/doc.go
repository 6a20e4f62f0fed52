// Package querysql compiles native record filters to parameterized SQLite
// queries for the local store.
package querysql
