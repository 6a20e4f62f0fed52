package cli

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/notiondb/internal/config"
)

// settableKeys lists the keys config set accepts and how their values parse.
var settableKeys = map[string]func(string) (any, error){
	config.KeyDatabaseID:    parseString,
	config.KeyBaseURL:       parseString,
	config.KeyNotionVersion: parseString,
	config.KeyBackend:       parseBackend,
	config.KeyLocalPath:     parseString,
	config.KeyLogLevel:      parseString,
	config.KeyPageSize:      parsePageSize,
	config.KeyTimeout:       parseDuration,
	config.KeyRequireMatch:  parseBool,
	config.KeyKeepEmptyRows: parseBool,
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newConfigSetCommand(rootOpts))
	return cmd
}

func newConfigShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the resolved settings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)

			cfg, err := opts.newLoader().Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}

			if formatter.Format == "json" {
				return formatter.Success(cfg)
			}

			source := cfg.ConfigFile
			if source == "" {
				source = "(defaults)"
			}
			rows := [][]string{
				{config.KeyBackend, cfg.Backend},
				{config.KeyDatabaseID, cfg.DatabaseID},
				{config.KeyBaseURL, cfg.BaseURL},
				{config.KeyNotionVersion, cfg.NotionVersion},
				{config.KeyPageSize, strconv.Itoa(cfg.PageSize)},
				{config.KeyTimeout, cfg.Timeout.String()},
				{config.KeyLocalPath, cfg.LocalPath},
				{config.KeyRequireMatch, strconv.FormatBool(cfg.RequireMatch)},
				{config.KeyKeepEmptyRows, strconv.FormatBool(cfg.KeepEmptyRows)},
				{config.KeyLogLevel, cfg.LogLevel},
				{config.KeyToken, maskToken(cfg.Token)},
			}
			for _, name := range sortedKeys(cfg.Tables) {
				rows = append(rows, []string{config.KeyTables + "." + name, cfg.Tables[name]})
			}

			fmt.Fprintf(formatter.Writer, "Config: %s\n", source)
			return formatter.Table([]string{"key", "value"}, rows)
		},
	}
}

func newConfigSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write one setting to the config file",
		Long: `Write one setting to the config file (--config, or
~/.config/notiondb/config.yaml). Use tables.<Name> to map a table name
to a database id. The token is never written; use 'notiondb auth login'.

Examples:
  notiondb config set database_id 8a3c...
  notiondb config set tables.Tasks 8a3c...
  notiondb config set page_size 50`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			loader := opts.newLoader()

			settings, err := settingFor(loader, args[0], args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid setting", err)
			}

			path, err := loader.Save(settings)
			if err != nil {
				_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to save config", err)
			}

			if formatter.Format == "json" {
				return formatter.Success(map[string]any{"path": path, "key": args[0]})
			}
			fmt.Fprintf(formatter.Writer, "✓ %s written to %s\n", args[0], path)
			return nil
		},
	}
}

// settingFor converts one key/value argument pair into Save input.
func settingFor(loader *config.Loader, key, value string) (map[string]any, error) {
	if name, ok := strings.CutPrefix(key, config.KeyTables+"."); ok {
		if name == "" {
			return nil, fmt.Errorf("table name is empty")
		}
		tables := map[string]any{}
		// A config file that does not exist yet has no tables to keep.
		if cfg, err := loader.Load(); err == nil {
			for k, v := range cfg.Tables {
				// Stored keys come back lower-cased
				if !strings.EqualFold(k, name) {
					tables[k] = v
				}
			}
		}
		tables[name] = value
		return map[string]any{config.KeyTables: tables}, nil
	}

	if key == config.KeyToken {
		return nil, fmt.Errorf("the token is stored with 'notiondb auth login'")
	}
	parse, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown key %q", key)
	}
	v, err := parse(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return map[string]any{key: v}, nil
}

func parseString(s string) (any, error) { return s, nil }

func parseBool(s string) (any, error) { return strconv.ParseBool(s) }

func parseBackend(s string) (any, error) {
	s = strings.ToLower(s)
	if s != config.BackendNotion && s != config.BackendLocal {
		return nil, fmt.Errorf("must be %s or %s", config.BackendNotion, config.BackendLocal)
	}
	return s, nil
}

func parsePageSize(s string) (any, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > 100 {
		return nil, fmt.Errorf("must be between 1 and 100")
	}
	return n, nil
}

// parseDuration validates the value but stores the text form.
func parseDuration(s string) (any, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, fmt.Errorf("must be positive")
	}
	return s, nil
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
