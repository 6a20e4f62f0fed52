// Package project turns native query results into flat rows.
package project

import (
	"math"
	"strings"

	"github.com/roach88/notiondb/internal/remote"
)

// EmptyRowPolicy decides what happens to rows whose projected values are
// all falsy (nil, "" or 0).
type EmptyRowPolicy int

const (
	// DropFalsyRows drops such rows. A record whose requested columns are
	// legitimately zero or empty is indistinguishable from one with no data
	// and is lost.
	DropFalsyRows EmptyRowPolicy = iota

	// KeepAllRows returns every record.
	KeepAllRows
)

// String returns the policy name used in configuration.
func (p EmptyRowPolicy) String() string {
	if p == KeepAllRows {
		return "keep"
	}
	return "drop"
}

// Metadata keys added to every row.
const (
	KeyID             = "id"
	KeyCreatedTime    = "created_time"
	KeyLastEditedTime = "last_edited_time"
)

// Row is one projected record: lower-cased column names mapped to decoded
// values (string, int64, float64 or nil), plus the metadata keys.
type Row map[string]any

// PageResult is one page of projected rows with the store's cursor metadata.
type PageResult struct {
	Data       []Row  `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// Projector decodes records into rows.
type Projector struct {
	Policy EmptyRowPolicy
}

// Project decodes every record of resp for the requested columns.
// Record order is preserved.
func (p Projector) Project(resp *remote.QueryResponse, columns []string) *PageResult {
	result := &PageResult{Data: []Row{}}
	if resp == nil {
		return result
	}

	for _, rec := range resp.Results {
		row, truthy := p.projectRecord(rec, columns)
		if !truthy && p.Policy == DropFalsyRows {
			continue
		}
		result.Data = append(result.Data, row)
	}

	result.NextCursor = resp.NextCursor
	result.HasMore = resp.HasMore
	return result
}

// projectRecord returns the row and whether any projected value is truthy.
func (p Projector) projectRecord(rec remote.Record, columns []string) (Row, bool) {
	row := make(Row, len(columns)+3)
	truthy := false

	for _, col := range columns {
		prop, ok := rec.Properties[col]
		var v any
		if ok {
			v = Decode(prop)
		}
		row[strings.ToLower(col)] = v
		truthy = truthy || isTruthy(v)
	}

	row[KeyID] = rec.ID
	row[KeyCreatedTime] = rec.CreatedTime
	row[KeyLastEditedTime] = rec.LastEditedTime
	return row, truthy
}

// Decode returns the scalar value of a property: the first run's display
// text for title and rich_text, the number for number, nil otherwise.
// Integral numbers decode to int64.
func Decode(prop remote.Property) any {
	switch prop.Type {
	case remote.TypeTitle:
		return remote.PlainText(prop.Title)
	case remote.TypeRichText:
		return remote.PlainText(prop.RichText)
	case remote.TypeNumber:
		if prop.Number == nil {
			return nil
		}
		n := *prop.Number
		if n == math.Trunc(n) && math.Abs(n) < 1<<63 {
			return int64(n)
		}
		return n
	default:
		return nil
	}
}

func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
