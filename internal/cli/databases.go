package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/notiondb/internal/remote"
)

// DatabasesOptions holds flags for the databases command.
type DatabasesOptions struct {
	*RootOptions
	Cursor   string
	PageSize int
}

// NewDatabasesCommand creates the databases command.
func NewDatabasesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatabasesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "databases",
		Short: "List the tables visible to the token",
		Long: `List the databases the integration can access, one page at a time.

Examples:
  notiondb databases
  notiondb databases --page-size 50 --cursor <next_cursor>
  notiondb databases --backend local --db ./tasks.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatabases(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "continue from a previous next_cursor")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "results per page (1-100)")

	return cmd
}

func runDatabases(opts *DatabasesOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.PageSize < 1 || opts.PageSize > 100 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--page-size must be between 1 and 100, got %d", opts.PageSize))
	}

	sess, err := opts.openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.close()

	searcher, ok := sess.store.(remote.Searcher)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("backend %s cannot list databases", sess.cfg.Backend))
	}

	list, err := searcher.SearchDatabases(cmd.Context(), opts.Cursor, opts.PageSize)
	if err != nil {
		return execFailed(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(list)
	}

	if len(list.Results) == 0 {
		fmt.Fprintln(formatter.Writer, "(no databases)")
	} else {
		rows := make([][]string, len(list.Results))
		for i, db := range list.Results {
			rows[i] = []string{db.ID, db.Title, db.LastEditedTime, strings.Join(db.Properties, ", ")}
		}
		if err := formatter.Table([]string{"id", "title", "last_edited_time", "properties"}, rows); err != nil {
			return err
		}
	}
	if list.HasMore {
		fmt.Fprintf(formatter.Writer, "More databases available, continue with --cursor %s\n", list.NextCursor)
	}
	return nil
}
