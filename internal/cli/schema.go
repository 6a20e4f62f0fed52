package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/notiondb/internal/remote"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns of a table",
		Long: `Fetch a table's schema and list its columns with their types and ids.

The table name is mapped to a store reference through the tables and
database_id settings, like in statements.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSchema(opts *RootOptions, table string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := opts.openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.close()

	ref := sess.executor.TableRef(table)
	formatter.VerboseLog("Fetching schema of %s (%s)", table, ref)

	tbl, err := sess.store.FetchSchema(cmd.Context(), ref)
	if err != nil {
		return execFailed(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(tbl)
	}

	fmt.Fprintf(formatter.Writer, "%s (%s)\n", displayName(tbl, table), tbl.ID)
	names := tbl.Columns()
	rows := make([][]string, len(names))
	for i, name := range names {
		col := tbl.Properties[name]
		rows[i] = []string{name, col.Type, col.ID}
	}
	return formatter.Table([]string{"column", "type", "id"}, rows)
}

// TablesResult is the JSON payload of the tables command.
type TablesResult struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables <table>",
		Short: "List the column names of a table",
		Long: `List a table's column names in sorted order, one per line.

Useful as the header for INSERT statements and scripts.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runTables(opts *RootOptions, table string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := opts.openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.close()

	tbl, err := sess.store.FetchSchema(cmd.Context(), sess.executor.TableRef(table))
	if err != nil {
		return execFailed(formatter, err)
	}

	columns := tbl.Columns()
	if formatter.Format == "json" {
		return formatter.Success(TablesResult{Table: table, Columns: columns})
	}
	for _, c := range columns {
		fmt.Fprintln(formatter.Writer, c)
	}
	return nil
}

func displayName(tbl *remote.TableSchema, fallback string) string {
	if name := tbl.Name(); name != "" {
		return name
	}
	return fallback
}
