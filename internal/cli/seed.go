package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/notiondb/internal/compiler"
	"github.com/roach88/notiondb/internal/config"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <tables.cue|dir>",
		Short: "Create tables and rows in the local store",
		Long: `Create the tables described by CUE definitions in the local store and
insert their rows. Definitions are validated first. Tables that already
exist with the same columns are reused.

Examples:
  notiondb seed ./tables --db ./dev.db
  notiondb seed tasks.cue --backend local`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSeed(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	tables, err := loadValidTables(opts, path, formatter)
	if err != nil {
		return err
	}

	// Seeding only makes sense locally; default to it when --db is given.
	if opts.Backend == "" && opts.LocalPath != "" {
		opts.Backend = config.BackendLocal
	}
	sess, err := opts.openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.close()

	target, ok := sess.store.(compiler.Target)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("backend %s cannot create tables; use --backend local", sess.cfg.Backend))
	}

	report, err := compiler.Seed(cmd.Context(), target, tables, sess.logger)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), report)
		return WrapExitError(ExitFailure, "seed failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintf(formatter.Writer, "✓ Seeded %d table(s), %d record(s) into %s\n", len(report.Tables), report.Records, sess.cfg.LocalPath)
	return nil
}
