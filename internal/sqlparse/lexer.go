package sqlparse

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/queryir"
)

// clauseLexer tokenizes the inside of a statement: column/value lists,
// WHERE conditions and SET assignments. Single-quoted literals are one
// token, so commas and keywords inside quotes never split anything.
var clauseLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Operator", Pattern: `<=|>=|==|=|<|>`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Word", Pattern: `[^\s,'=<>]+`},
})

var (
	tokString     = clauseLexer.Symbols()["String"]
	tokOperator   = clauseLexer.Symbols()["Operator"]
	tokComma      = clauseLexer.Symbols()["Comma"]
	tokWhitespace = clauseLexer.Symbols()["Whitespace"]
	tokWord       = clauseLexer.Symbols()["Word"]
)

// tokenize lexes s, dropping the trailing EOF token.
func tokenize(s string) ([]lexer.Token, error) {
	lex, err := clauseLexer.LexString("", s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	tokens := make([]lexer.Token, 0, len(all))
	for _, tok := range all {
		if tok.EOF() {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// unquote strips the surrounding quotes of a String token and collapses
// doubled quotes.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, "''", "'")
}

// splitList splits a comma-separated list, honoring quoted literals.
// Quoted entries are unquoted; bare entries keep inner spacing collapsed to
// single spaces. Blank unquoted entries (for example after a trailing comma)
// are dropped.
func splitList(s string) ([]string, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return nil, err
	}

	var (
		items   []string
		current strings.Builder
		quoted  bool
		space   bool
	)
	flush := func() {
		if quoted || current.Len() > 0 {
			items = append(items, current.String())
		}
		current.Reset()
		quoted, space = false, false
	}

	for _, tok := range tokens {
		switch tok.Type {
		case tokComma:
			flush()
		case tokWhitespace:
			space = current.Len() > 0 || quoted
		case tokString:
			if space {
				current.WriteByte(' ')
			}
			current.WriteString(unquote(tok.Value))
			quoted, space = true, false
		default:
			if space {
				current.WriteByte(' ')
			}
			current.WriteString(tok.Value)
			space = false
		}
	}
	flush()

	return items, nil
}

// segment is a run of tokens between separators.
type segment []lexer.Token

// splitOn cuts tokens at every Word matching one of the keywords
// (case-insensitive) and, when commas is set, at every comma. It returns
// the segments and the separators between them, upper-cased.
func splitOn(tokens []lexer.Token, keywords []string, commas bool) ([]segment, []string) {
	var (
		segments   []segment
		separators []string
		current    segment
	)
	for _, tok := range tokens {
		if tok.Type == tokWord && isKeyword(tok.Value, keywords) {
			segments = append(segments, current)
			separators = append(separators, strings.ToUpper(tok.Value))
			current = nil
			continue
		}
		if commas && tok.Type == tokComma {
			segments = append(segments, current)
			separators = append(separators, ",")
			current = nil
			continue
		}
		current = append(current, tok)
	}
	segments = append(segments, current)
	return segments, separators
}

func isKeyword(word string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.EqualFold(word, kw) {
			return true
		}
	}
	return false
}

// cutAtKeyword splits s at the first bare (unquoted) occurrence of keyword.
func cutAtKeyword(s, keyword string) (before, after string, found bool, err error) {
	tokens, err := tokenize(s)
	if err != nil {
		return "", "", false, err
	}
	for _, tok := range tokens {
		if tok.Type == tokWord && strings.EqualFold(tok.Value, keyword) {
			offset := tok.Pos.Offset
			return strings.TrimSpace(s[:offset]), strings.TrimSpace(s[offset+len(tok.Value):]), true, nil
		}
	}
	return s, "", false, nil
}

// operatorPunct are characters that, directly before an operator, form an
// operator the grammar does not have (!=, ~=, ...).
const operatorPunct = "!~^|&"

// comparison is a segment split around its operator.
type comparison struct {
	left     string
	operator string
	right    segment
}

// splitComparison splits a segment at its single operator token.
func splitComparison(seg segment) (comparison, error) {
	idx := -1
	for i, tok := range seg {
		if tok.Type != tokOperator {
			continue
		}
		if idx >= 0 {
			return comparison{}, fmt.Errorf("%w: %q has more than one comparison operator", ErrSyntax, seg.text())
		}
		idx = i
	}
	if idx < 0 {
		return comparison{}, fmt.Errorf("%w: %q has no comparison operator", ErrSyntax, seg.text())
	}

	left := seg[:idx].text()
	if left == "" {
		return comparison{}, fmt.Errorf("%w: %q has no left-hand side", ErrSyntax, seg.text())
	}
	if strings.ContainsAny(left[len(left)-1:], operatorPunct) {
		return comparison{}, fmt.Errorf("%w: %q uses an unsupported operator %q", ErrSyntax, seg.text(), left[len(left)-1:]+seg[idx].Value)
	}
	return comparison{
		left:     left,
		operator: seg[idx].Value,
		right:    seg[idx+1:],
	}, nil
}

// text renders the segment with whitespace collapsed and trimmed.
func (seg segment) text() string {
	var b strings.Builder
	space := false
	for _, tok := range seg {
		if tok.Type == tokWhitespace {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteString(tok.Value)
	}
	return b.String()
}

// literal converts the right-hand side of a comparison into a value.
// A lone quoted literal is unquoted exactly once and keeps any quotes it
// contains; only the all-digit integer coercion applies to it.
func (seg segment) literal() ir.IRValue {
	var significant segment
	for _, tok := range seg {
		if tok.Type != tokWhitespace {
			significant = append(significant, tok)
		}
	}
	if len(significant) == 1 && significant[0].Type == tokString {
		return ir.CoerceDigits(unquote(significant[0].Value))
	}
	return ir.ParseLiteral(seg.text())
}

// parseConditions parses a WHERE clause into a condition list.
// AND and OR are both kept as connectives; OR is rejected downstream.
func parseConditions(where string) ([]queryir.Term, error) {
	tokens, err := tokenize(where)
	if err != nil {
		return nil, err
	}

	segments, separators := splitOn(tokens, []string{string(queryir.And), string(queryir.Or)}, false)

	terms := make([]queryir.Term, 0, len(segments)*2-1)
	for i, seg := range segments {
		if i > 0 {
			terms = append(terms, queryir.Connective(separators[i-1]))
		}
		if seg.text() == "" {
			return nil, fmt.Errorf("%w: empty condition in WHERE clause %q", ErrSyntax, where)
		}
		cmp, err := splitComparison(seg)
		if err != nil {
			return nil, err
		}
		terms = append(terms, queryir.Condition{
			Parameter: cmp.left,
			Operator:  queryir.Operator(cmp.operator),
			Value:     cmp.right.literal(),
		})
	}
	return terms, nil
}

// parseAssignments parses an UPDATE SET clause. Assignments are separated
// by AND or by commas.
func parseAssignments(set string) ([]queryir.Assignment, error) {
	tokens, err := tokenize(set)
	if err != nil {
		return nil, err
	}

	segments, _ := splitOn(tokens, []string{string(queryir.And)}, true)

	assignments := make([]queryir.Assignment, 0, len(segments))
	for _, seg := range segments {
		if seg.text() == "" {
			return nil, fmt.Errorf("%w: empty assignment in SET clause %q", ErrSyntax, set)
		}
		cmp, err := splitComparison(seg)
		if err != nil {
			return nil, err
		}
		if cmp.operator != string(queryir.OpEqual) {
			return nil, fmt.Errorf("%w: SET assignment %q must use '='", ErrSyntax, seg.text())
		}
		assignments = append(assignments, queryir.Assignment{
			Key:   cmp.left,
			Value: cmp.right.literal(),
		})
	}
	return assignments, nil
}
