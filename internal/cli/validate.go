package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/notiondb/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Tables []string                   `json:"tables,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <tables.cue|dir>",
		Short: "Validate table definitions",
		Long: `Validate CUE table definitions without touching a store.

Checks column names and types, the single title column, and that every
seed row value fits its column.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	tables, err := loadValidTables(opts, path, formatter)
	if err != nil {
		return err
	}

	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Tables: names})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d table definition(s) valid\n", len(tables))
	return nil
}

// loadValidTables loads definitions and reports load or validation errors
// through formatter.
func loadValidTables(opts *RootOptions, path string, formatter *OutputFormatter) ([]*compiler.TableSpec, error) {
	result, err := LoadTables(opts.fs(), path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return nil, outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return nil, outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, path)
	for _, t := range result.Tables {
		formatter.VerboseLog("Validating table: %s", t.Name)
	}

	if errs := compiler.Validate(result.Tables); len(errs) > 0 {
		return nil, outputValidationErrors(formatter, errs)
	}
	return result.Tables, nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
