package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/notiondb/internal/config"
)

// RootOptions holds global flags for all commands, plus the dependencies
// commands reach outside the process for. Tests replace the latter.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Backend    string // overrides the configured backend when set
	LocalPath  string // overrides local_path when set

	// Fs is used for config, table definition and batch files.
	// Default: the OS filesystem.
	Fs afero.Fs

	// Tokens stores the API token. Default: the OS keyring, opened on
	// first use.
	Tokens config.TokenStore

	// Prompt asks for a secret. Default: an interactive password prompt.
	Prompt func(message string) (string, error)

	// WorkDir and HomeDir override where config and .env files are found.
	WorkDir string
	HomeDir string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the notiondb CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts, keeping
// any dependencies already set on it.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notiondb",
		Short: "notiondb - SQL over Notion databases",
		Long: `Run INSERT, SELECT, UPDATE and DELETE statements against Notion databases,
or against a local SQLite store with the same behavior.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Backend != "" && opts.Backend != config.BackendNotion && opts.Backend != config.BackendLocal {
				return fmt.Errorf("invalid backend %q: must be %s or %s", opts.Backend, config.BackendNotion, config.BackendLocal)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./.notiondb.yaml or ~/.config/notiondb/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "store backend (notion|local)")
	cmd.PersistentFlags().StringVar(&opts.LocalPath, "db", "", "local store database path")

	// Add subcommands
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewDatabasesCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
