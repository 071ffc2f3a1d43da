package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationError is one scenario file that failed to load.
type ValidationError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"` // schema line for CUE errors
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenarios>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files without dispatching anything.

Checks YAML structure and unknown fields, required fields, the reducer
name, middleware names, expected error kinds and assertion shapes, and
compiles any referenced CUE schema. Directories are searched for
.yaml/.yml files.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts, cmd)

	var files []string
	for _, p := range paths {
		found, err := FindScenarioFiles(p, "")
		if err != nil {
			return outputValidateError(formatter, loadErrorCode(err), err.Error())
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return outputValidateError(formatter, ErrCodeNoFiles, "no scenario files found")
	}

	var validationErrors []ValidationError
	for _, file := range files {
		formatter.VerboseLog("Validating scenario: %s", file)
		if _, err := LoadScenario(file); err != nil {
			validationErrors = append(validationErrors, toValidationError(file, err))
		}
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}
	return outputValidateSuccess(formatter, len(files))
}

// toValidationError flattens a load error for output.
func toValidationError(file string, err error) ValidationError {
	ve := ValidationError{File: file, Code: ErrCodeGeneric, Message: err.Error()}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		ve.Code = loadErr.Code
		ve.Message = loadErr.Message
		if loadErr.Pos.IsValid() {
			ve.Line = loadErr.Pos.Line()
		}
	}
	return ve
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, files int) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Files: files})
	}

	fmt.Fprintf(formatter.Writer, "✓ All scenarios valid (%d file(s))\n", files)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every invalid scenario.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s (schema line %d)\n", err.File, err.Line)
		} else {
			fmt.Fprintln(formatter.Writer, err.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
