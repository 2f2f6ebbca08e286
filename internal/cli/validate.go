package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/linkcheck/internal/config"
	"github.com/roach88/linkcheck/internal/harness"
	"github.com/roach88/linkcheck/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Suite  string                   `json:"suite,omitempty"`
	Tests  int                      `json:"tests,omitempty"`
	Errors []schema.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <suite.yaml>",
		Short: "Validate a suite file without running it",
		Long: `Validate a suite file against the suite schema.

Checks the file against the embedded CUE schema (reporting every
violation with its line), then decodes it strictly and checks the
settings block. Nothing is executed.

Exit codes:
  0   - Suite file is valid
  1   - Suite file is invalid
  126 - Command error (file not found)`,
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
	formatter := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("suite file not found: %s", path), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read suite file", err)
	}

	formatter.VerboseLog("Checking %s against the suite schema", path)
	errs, err := schema.Validate(path, data)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to load suite schema", err)
	}
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to resolve suite directory", err)
	}
	sf, err := harness.ParseSuiteFile(data, dir)
	if err != nil {
		return outputValidationErrors(formatter, []schema.ValidationError{{
			Field:   "suite",
			Message: err.Error(),
			Code:    ErrCodeInvalid,
		}})
	}

	cfg := config.Default()
	if err := cfg.ApplySettings(sf.Settings); err != nil {
		return outputValidationErrors(formatter, []schema.ValidationError{{
			Field:   "settings",
			Message: err.Error(),
			Code:    ErrCodeInvalid,
		}})
	}

	formatter.VerboseLog("Suite %q: %d test(s)", sf.Name, len(sf.Tests))

	return formatter.Success(
		ValidationResult{Valid: true, Suite: sf.Name, Tests: len(sf.Tests)},
		fmt.Sprintf("✓ Suite %q valid (%d tests)", sf.Name, len(sf.Tests)),
	)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []schema.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
