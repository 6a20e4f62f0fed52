package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/notiondb/internal/engine"
	"github.com/roach88/notiondb/internal/queryir"
	"github.com/roach88/notiondb/internal/sqlparse"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Cursor string // continue a SELECT from this cursor
	DryRun bool   // plan UPDATE/DELETE without patching
	Batch  string // YAML file with one parameter list per INSERT
}

// ExecResult is the JSON payload for a write statement.
type ExecResult struct {
	Statement string `json:"statement"`
	Rows      int    `json:"rows,omitempty"` // batch size
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <sql> [params...]",
		Short: "Execute one statement",
		Long: `Execute an INSERT, SELECT, UPDATE or DELETE statement.

Parameters replace %s placeholders in order. Integer-looking parameters
are passed as numbers, everything else as text.

Exit codes:
  0 - Statement executed
  1 - Statement failed (parse error, unresolved column, store error)
  2 - Command error (bad flags, missing config)

Examples:
  notiondb exec "SELECT Name, Points FROM Tasks WHERE Points > %s" 2
  notiondb exec "SELECT * FROM Tasks" --cursor id-0042
  notiondb exec "DELETE FROM Tasks WHERE Name = 'old'" --dry-run
  notiondb exec "INSERT INTO Tasks (Name, Points) VALUES (%s, %s)" --batch rows.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args[0], parseParams(args[1:]), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "continue a SELECT from a previous next_cursor")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show the records an UPDATE or DELETE would patch")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "YAML file with a list of parameter rows for an INSERT")

	return cmd
}

func runExec(opts *ExecOptions, sql string, params []any, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Batch != "" && len(params) > 0 {
		return NewExitError(ExitCommandError, "--batch and positional parameters are exclusive")
	}
	if opts.Cursor != "" && len(params) > 0 {
		return NewExitError(ExitCommandError, "--cursor takes a statement without parameters")
	}

	var batch [][]any
	if opts.Batch != "" {
		rows, err := readBatch(opts.fs(), opts.Batch)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read batch file", err)
		}
		batch = rows
	}

	sess, err := opts.openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.close()

	ctx := cmd.Context()
	_, kind := sqlparse.CheckStatement(sql)

	switch {
	case opts.DryRun:
		plan, err := sess.executor.Plan(ctx, sql, params...)
		if err != nil {
			return execFailed(formatter, err)
		}
		return outputPlan(formatter, plan)

	case opts.Batch != "":
		if err := sess.executor.ExecuteMany(ctx, sql, batch); err != nil {
			return execFailed(formatter, err)
		}
		return outputWrite(formatter, ExecResult{Statement: string(queryir.KindInsert), Rows: len(batch)})

	case opts.Cursor != "":
		page, err := sess.executor.Select(ctx, sql, opts.Cursor)
		if err != nil {
			return execFailed(formatter, err)
		}
		return formatter.Page(page, selectColumns(sql))
	}

	page, err := sess.executor.Execute(ctx, sql, params...)
	if err != nil {
		return execFailed(formatter, err)
	}
	if page != nil {
		return formatter.Page(page, selectColumns(sql))
	}
	return outputWrite(formatter, ExecResult{Statement: string(kind)})
}

// parseParams passes integers as int64 so they render unquoted.
func parseParams(args []string) []any {
	params := make([]any, len(args))
	for i, a := range args {
		if n, err := strconv.ParseInt(a, 10, 64); err == nil {
			params[i] = n
			continue
		}
		params[i] = a
	}
	return params
}

// readBatch decodes a YAML list of parameter lists.
func readBatch(fs afero.Fs, path string) ([][]any, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var rows [][]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

// selectColumns returns the explicit column list of a SELECT, nil for
// SELECT * or anything unparsable.
func selectColumns(sql string) []string {
	stmt, err := sqlparse.Parse(sql)
	if err != nil {
		return nil
	}
	if sel, ok := stmt.(*queryir.Select); ok {
		return sel.Columns
	}
	return nil
}

func execFailed(formatter *OutputFormatter, err error) error {
	if outErr := formatter.Error(errorCode(err), err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, "statement failed", err)
}

func outputWrite(formatter *OutputFormatter, result ExecResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if result.Rows > 0 {
		fmt.Fprintf(formatter.Writer, "✓ %s: %d rows\n", result.Statement, result.Rows)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ %s\n", result.Statement)
	return nil
}

func outputPlan(formatter *OutputFormatter, plan *engine.UpdatePlan) error {
	if formatter.Format == "json" {
		return formatter.Success(plan)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s %s (%s): %d record(s) would be patched\n", plan.Kind, plan.Table, plan.TableRef, len(plan.MatchedIDs))
	for _, o := range plan.Outcomes {
		formatter.VerboseLog("  %s: %v", o.Property, o.Outcome)
	}
	if len(plan.MatchedIDs) == 0 {
		return nil
	}
	rows := make([][]string, len(plan.MatchedIDs))
	for i, id := range plan.MatchedIDs {
		rows[i] = []string{id}
	}
	return formatter.Table([]string{"id"}, rows)
}
