// Package compiler turns CUE table definitions into table specs and seeds
// them, rows included, into the local store.
package compiler
