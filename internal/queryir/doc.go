// Package queryir provides the intermediate representation of a parsed
// statement, produced by the statement parser and consumed by the executor.
//
// ARCHITECTURE:
//
//	[SQL text] → [sqlparse] → [Statement] → [schema annotation] → [native filter/payload]
//
// Statement is a tagged union over the four supported statement shapes:
//
//	Insert{Table, Fields}
//	Select{Table, Columns, Conditions}
//	Update{Table, SetValues, WhereClause}
//	Delete{Table, WhereClause}
//
// SUPPORTED FRAGMENT:
//   - Conditions: parameter (= == > < <= >=) literal
//   - Connectives: AND only, as a flat list (no grouping, no negation)
//   - Literals: integers (all-digit text) or strings
//
// The fragment EXCLUDES:
//   - OR logic (an OR connective is kept in the condition list so later
//     stages can reject it explicitly)
//   - Joins, subqueries, aggregates
//
// SEALED INTERFACES:
//
// Statement and Term are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, which keeps type switches
// in the executor and builders exhaustive:
//
//	switch stmt := statement.(type) {
//	case *Insert:
//	case *Select:
//	case *Update:
//	case *Delete:
//	}
//
// Update and Delete keep their WHERE clause as opaque text. The executor
// re-submits it as a SELECT to find the rows it has to patch.
package queryir
