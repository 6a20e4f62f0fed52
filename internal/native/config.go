package native

import "github.com/roach88/notiondb/internal/queryir"

// Config holds the translation tables used by the builders.
type Config struct {
	// Operators maps statement operators to native filter operators.
	Operators map[queryir.Operator]string

	// DefaultPageSize is used when a SELECT has no page_size condition.
	DefaultPageSize int

	// TextTypes are encoded as a single text run.
	TextTypes []string

	// NumberTypes are encoded as integers.
	NumberTypes []string
}

// DefaultConfig returns the operator table and type sets of the Notion API.
// Each call returns a fresh copy.
func DefaultConfig() Config {
	return Config{
		Operators: map[queryir.Operator]string{
			queryir.OpEqual:          "equals",
			queryir.OpDoubleEqual:    "equals",
			queryir.OpGreater:        "greater_than",
			queryir.OpLess:           "less_than",
			queryir.OpLessOrEqual:    "less_than_or_equal_to",
			queryir.OpGreaterOrEqual: "greater_than_or_equal_to",
		},
		DefaultPageSize: 20,
		TextTypes:       []string{"title", "rich_text"},
		NumberTypes:     []string{"number"},
	}
}

// Supports reports whether values of columnType can be encoded.
func (c Config) Supports(columnType string) bool {
	return c.isText(columnType) || c.isNumber(columnType)
}

func (c Config) isText(columnType string) bool {
	return contains(c.TextTypes, columnType)
}

func (c Config) isNumber(columnType string) bool {
	return contains(c.NumberTypes, columnType)
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
