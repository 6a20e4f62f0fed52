package compiler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/native"
	"github.com/roach88/notiondb/internal/queryir"
	"github.com/roach88/notiondb/internal/remote"
	"github.com/roach88/notiondb/internal/schema"
	"github.com/roach88/notiondb/internal/store"
)

// Target is a store that can create tables, i.e. the local store.
type Target interface {
	CreateTable(ctx context.Context, def store.TableDef) (*remote.TableSchema, error)
	CreateRecord(ctx context.Context, tableRef string, payload remote.Payload) (*remote.Record, error)
}

// SeedReport counts what Seed created.
type SeedReport struct {
	Tables  []string `json:"tables"`
	Records int      `json:"records"`
}

// Seed creates each table and inserts its rows. Rows are encoded by the same
// payload builder INSERT statements use. Null values are left unset.
//
// Definitions should be validated first; Seed stops at the first failure.
func Seed(ctx context.Context, target Target, tables []*TableSpec, logger *slog.Logger) (*SeedReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	payloads := native.NewPayloadBuilder(native.DefaultConfig())
	report := &SeedReport{Tables: []string{}}

	for _, t := range tables {
		tbl, err := target.CreateTable(ctx, tableDef(t))
		if err != nil {
			return report, fmt.Errorf("create table %s: %w", t.Name, err)
		}
		report.Tables = append(report.Tables, t.Name)

		for i, row := range t.Rows {
			fields := schema.AnnotateAssignments(rowAssignments(row), tbl, nil)
			payload, _, err := payloads.Build(tbl.ID, fields)
			if err != nil {
				return report, fmt.Errorf("table %s row %d: %w", t.Name, i, err)
			}
			if _, err := target.CreateRecord(ctx, tbl.ID, payload); err != nil {
				return report, fmt.Errorf("table %s row %d: %w", t.Name, i, err)
			}
			report.Records++
		}

		logger.Info("table seeded", "table", t.Name, "id", tbl.ID, "rows", len(t.Rows))
	}
	return report, nil
}

func tableDef(t *TableSpec) store.TableDef {
	def := store.TableDef{Name: t.Name, Description: t.Description}
	for _, c := range t.Columns {
		def.Columns = append(def.Columns, store.ColumnDef{Name: c.Name, Type: c.Type})
	}
	return def
}

// rowAssignments lists a row's non-null values in key order.
func rowAssignments(row ir.IRObject) []queryir.Assignment {
	out := make([]queryir.Assignment, 0, len(row))
	for _, k := range row.SortedKeys() {
		if _, isNull := row[k].(ir.IRNull); isNull {
			continue
		}
		out = append(out, queryir.Assignment{Key: k, Value: row[k]})
	}
	return out
}
