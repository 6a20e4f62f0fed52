package store

import (
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the timestamp format of created_time and last_edited_time.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// IDGenerator produces table, column and record ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock supplies record timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

func (s *Store) timestamp() string {
	return s.clock.Now().UTC().Format(TimeLayout)
}
