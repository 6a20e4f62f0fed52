package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxPages bounds how many result pages UPDATE and DELETE walk while
// collecting matches.
const DefaultMaxPages = 1000

// pageGuard stops a paging loop that would not terminate on its own.
//
// Two failure modes are caught:
//   - a cursor the store already returned (A → B → A)
//   - more pages than the limit allows (A → B → C → ... → Z)
//
// A guard belongs to one loop and is not safe for concurrent use.
type pageGuard struct {
	maxPages int
	pages    int
	seen     map[string]bool
}

func newPageGuard(maxPages int) *pageGuard {
	return &pageGuard{maxPages: maxPages, seen: make(map[string]bool)}
}

// Next records that the page at cursor is about to be requested.
func (g *pageGuard) Next(table, cursor string) error {
	g.pages++
	if g.maxPages > 0 && g.pages > g.maxPages {
		return &PageLimitError{Table: table, Pages: g.pages, Limit: g.maxPages}
	}
	if cursor == "" {
		return nil
	}
	if g.seen[cursor] {
		return &CursorCycleError{Table: table, Cursor: cursor}
	}
	g.seen[cursor] = true
	return nil
}

// Pages returns how many pages have been requested.
func (g *pageGuard) Pages() int {
	return g.pages
}

// PageLimitError is returned when matching needs more pages than allowed.
// Nothing has been patched when it is returned.
type PageLimitError struct {
	Table string
	Pages int
	Limit int
}

// Error implements the error interface.
func (e *PageLimitError) Error() string {
	return fmt.Sprintf("table %s exceeded the page limit: %d pages > %d", e.Table, e.Pages, e.Limit)
}

// CursorCycleError is returned when the store hands back a cursor it
// already returned for the same query.
type CursorCycleError struct {
	Table  string
	Cursor string
}

// Error implements the error interface.
func (e *CursorCycleError) Error() string {
	return fmt.Sprintf("table %s: store returned cursor %q twice", e.Table, e.Cursor)
}

// IsPageLimitError reports whether err wraps a *PageLimitError.
func IsPageLimitError(err error) bool {
	var pe *PageLimitError
	return errors.As(err, &pe)
}

// IsCursorCycleError reports whether err wraps a *CursorCycleError.
func IsCursorCycleError(err error) bool {
	var ce *CursorCycleError
	return errors.As(err, &ce)
}
