package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/notiondb/internal/config"
	"github.com/roach88/notiondb/internal/remote"
)

// AuthStatus is the JSON payload of auth status.
type AuthStatus struct {
	LoggedIn bool   `json:"logged_in"`
	Source   string `json:"source,omitempty"` // "config", "keyring"
	Token    string `json:"token,omitempty"`  // masked
	Verified *bool  `json:"verified,omitempty"`
}

// NewAuthCommand creates the auth command group.
func NewAuthCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Notion API token",
		Long: `Store, remove and inspect the Notion integration token.

The token is kept in the OS keyring. NOTIONDB_TOKEN, NOTION_TOKEN and the
token key of the config file take precedence over it.`,
	}

	cmd.AddCommand(newAuthLoginCommand(rootOpts))
	cmd.AddCommand(newAuthLogoutCommand(rootOpts))
	cmd.AddCommand(newAuthStatusCommand(rootOpts))
	return cmd
}

func newAuthLoginCommand(opts *RootOptions) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:           "login",
		Short:         "Store a token in the keyring",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)

			if token == "" {
				var err error
				token, err = opts.prompt("Notion integration token:")
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read token", err)
				}
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return NewExitError(ExitCommandError, "token is empty")
			}

			tokens, err := opts.tokenStore()
			if err != nil {
				return WrapExitError(ExitCommandError, "keyring unavailable", err)
			}
			if err := tokens.Set(token); err != nil {
				return WrapExitError(ExitCommandError, "failed to store token", err)
			}

			if formatter.Format == "json" {
				return formatter.Success(AuthStatus{LoggedIn: true, Source: "keyring", Token: maskToken(token)})
			}
			fmt.Fprintln(formatter.Writer, "✓ Token stored in keyring")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "token to store (prompted for when omitted)")
	return cmd
}

func newAuthLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Remove the token from the keyring",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)

			tokens, err := opts.tokenStore()
			if err != nil {
				return WrapExitError(ExitCommandError, "keyring unavailable", err)
			}
			if err := tokens.Delete(); err != nil {
				return WrapExitError(ExitCommandError, "failed to remove token", err)
			}

			if formatter.Format == "json" {
				return formatter.Success(AuthStatus{LoggedIn: false})
			}
			fmt.Fprintln(formatter.Writer, "✓ Token removed from keyring")
			return nil
		},
	}
}

func newAuthStatusCommand(opts *RootOptions) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show where the token comes from",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)

			cfg, err := opts.newLoader().Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}

			status := AuthStatus{
				LoggedIn: cfg.Token != "",
				Source:   cfg.TokenSource,
				Token:    maskToken(cfg.Token),
			}

			if verify && status.LoggedIn {
				ok := verifyToken(opts, cmd)
				status.Verified = &ok
			}

			if formatter.Format == "json" {
				return formatter.Success(status)
			}

			w := formatter.Writer
			if !status.LoggedIn {
				fmt.Fprintf(w, "✗ Not logged in (set %s_TOKEN or run 'notiondb auth login')\n", config.EnvPrefix)
				return NewExitError(ExitFailure, "not logged in")
			}
			fmt.Fprintf(w, "✓ Token %s from %s\n", status.Token, status.Source)
			if status.Verified != nil {
				if *status.Verified {
					fmt.Fprintln(w, "✓ Token accepted by the API")
				} else {
					fmt.Fprintln(w, "✗ Token rejected by the API")
					return NewExitError(ExitFailure, "token rejected")
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "check the token with a one-item search")
	return cmd
}

// verifyToken runs a one-item database search against the Notion backend.
func verifyToken(opts *RootOptions, cmd *cobra.Command) bool {
	saved := opts.Backend
	opts.Backend = config.BackendNotion
	defer func() { opts.Backend = saved }()

	sess, err := opts.openSession(cmd.ErrOrStderr())
	if err != nil {
		return false
	}
	defer sess.close()

	searcher, ok := sess.store.(remote.Searcher)
	if !ok {
		return false
	}
	if _, err := searcher.SearchDatabases(cmd.Context(), "", 1); err != nil {
		sess.logger.Debug("token verification failed", "error", err)
		return false
	}
	return true
}

// prompt asks for a secret with the injected prompt or a terminal prompt.
func (o *RootOptions) prompt(message string) (string, error) {
	if o.Prompt != nil {
		return o.Prompt(message)
	}
	var answer string
	err := survey.AskOne(&survey.Password{Message: message}, &answer, survey.WithValidator(survey.Required))
	return answer, err
}

// maskToken keeps the first and last four characters.
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", 4) + token[len(token)-4:]
}
