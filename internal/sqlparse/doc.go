// Package sqlparse recognizes the four supported statement shapes and turns
// statement text into queryir statements.
//
// Shape recognition is regex based and case-insensitive. The inside of each
// clause is tokenized with a participle lexer so that quoted literals keep
// their commas, keywords and operators. Substitute renders %s placeholders
// before parsing.
package sqlparse
