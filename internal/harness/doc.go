// Package harness runs SQL scenarios against the local store.
//
// Every scenario gets a fresh in-memory store, seeded from CUE table
// definitions. Its statements run through the same engine the CLI uses,
// wrapped by a Recorder that traces each store call, so a scenario checks
// both what a statement returns and which calls it took to get there.
//
// # Scenario Format
//
//	name: update_points
//	description: "UPDATE patches every matching record"
//	tables:
//	  - tables.cue
//	setup:
//	  - sql: "INSERT INTO Tasks (Name, Points) VALUES ('%s', %s)"
//	    params: [write docs, 3]
//	steps:
//	  - sql: "UPDATE Tasks SET Points = 5 WHERE Name = 'write docs'"
//	  - sql: "SELECT Name, Points FROM Tasks"
//	    expect:
//	      rows:
//	        - {Name: write docs, Points: 5}
//	assertions:
//	  - type: call_count
//	    op: patch_record
//	    count: 1
//	  - type: final_rows
//	    sql: "SELECT Name FROM Tasks WHERE Points > 4"
//	    count: 1
//
// A step may instead carry a batch of rows for an INSERT template, or a
// cursor ("$next" continues the previous page). An expect clause names
// either an error code or the rows, count and has_more of a SELECT.
//
// # Assertion Types
//
//   - call_contains: a call to op whose rendered body contains body
//   - call_order: the first call of each op appears in the listed order
//   - call_count: op was called exactly count times
//   - final_rows: a SELECT run after the steps returns rows or count rows
//
// # Deterministic Testing
//
// Record ids come from testutil.SequentialIDs and timestamps from
// testutil.DeterministicClock, so a scenario's snapshot of step results and
// store calls is byte-identical across runs. RunWithGolden compares that
// snapshot against testdata/golden/<name>.golden.
package harness
