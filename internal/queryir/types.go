package queryir

import "github.com/roach88/notiondb/internal/ir"

// Kind tags a statement shape.
type Kind string

const (
	KindInsert  Kind = "insert"
	KindSelect  Kind = "select"
	KindUpdate  Kind = "update"
	KindDelete  Kind = "delete"
	KindUnknown Kind = "unknown"
)

// Statement represents one parsed SQL statement.
//
// This is a sealed interface - only types in this package implement it.
type Statement interface {
	statementNode() // Marker method - seals interface to this package

	// Kind returns the statement shape.
	Kind() Kind

	// TableName returns the table named in the statement.
	TableName() string
}

// Field is a single property/value pair of an INSERT.
//
// Values stay as text: the payload builder coerces them according to the
// column type resolved from the schema.
type Field struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// Insert represents
//
//	INSERT INTO <table> (<prop,...>) VALUES (<val,...>)
//
// Fields are in column order. The parser guarantees one value per property.
type Insert struct {
	Table  string
	Fields []Field
}

func (*Insert) statementNode()      {}
func (*Insert) Kind() Kind          { return KindInsert }
func (s *Insert) TableName() string { return s.Table }

// Select represents
//
//	SELECT <cols|*> FROM <table> [WHERE <cond> (AND <cond>)*]
//
// Columns is nil for "*". Conditions is nil when there is no WHERE clause;
// otherwise it interleaves Condition and Connective terms in source order:
//
//	[Condition{age > 5}, Connective("AND"), Condition{city = "NYC"}]
type Select struct {
	Table      string
	Columns    []string
	Conditions []Term
}

func (*Select) statementNode()      {}
func (*Select) Kind() Kind          { return KindSelect }
func (s *Select) TableName() string { return s.Table }

// Update represents
//
//	UPDATE <table> SET <key=val (AND key=val)*> WHERE <where_clause>
//
// WhereClause is kept verbatim; it is parsed later as a SELECT filter.
type Update struct {
	Table       string
	SetValues   []Assignment
	WhereClause string
}

func (*Update) statementNode()      {}
func (*Update) Kind() Kind          { return KindUpdate }
func (s *Update) TableName() string { return s.Table }

// Delete represents
//
//	DELETE FROM <table> WHERE <where_clause>
type Delete struct {
	Table       string
	WhereClause string
}

func (*Delete) statementNode()      {}
func (*Delete) Kind() Kind          { return KindDelete }
func (s *Delete) TableName() string { return s.Table }

// Assignment is a single key=value pair of an UPDATE SET clause.
type Assignment struct {
	Key   string
	Value ir.IRValue // IRInt for all-digit literals, IRString otherwise
}

// Operator is a comparison operator as written in the statement.
type Operator string

const (
	OpEqual          Operator = "="
	OpDoubleEqual    Operator = "=="
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreaterOrEqual Operator = ">="
)

// Operators lists every operator the parser recognizes, longest first.
var Operators = []Operator{OpLessOrEqual, OpGreaterOrEqual, OpDoubleEqual, OpEqual, OpGreater, OpLess}

// Term is an element of a WHERE condition list.
//
// This is a sealed interface - only Condition and Connective implement it.
type Term interface {
	termNode() // Marker method - seals interface to this package
}

// Condition is a single comparison: <parameter> <operator> <value>.
type Condition struct {
	Parameter string
	Operator  Operator
	Value     ir.IRValue
}

func (Condition) termNode() {}

// Connective joins two conditions.
type Connective string

const (
	// And is the only connective with filter semantics.
	And Connective = "AND"

	// Or is recognized by the parser but has no filter semantics.
	Or Connective = "OR"
)

func (Connective) termNode() {}

// ConditionsOf returns the Condition terms of a condition list, dropping
// connectives.
func ConditionsOf(terms []Term) []Condition {
	var conds []Condition
	for _, term := range terms {
		if c, ok := term.(Condition); ok {
			conds = append(conds, c)
		}
	}
	return conds
}
