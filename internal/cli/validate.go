package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/gridstamp/internal/config"
	"github.com/roach88/gridstamp/internal/engine"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Grid    string   `json:"grid,omitempty"`
	Layers  []string `json:"layers,omitempty"`
	Kinds   []string `json:"kinds,omitempty"`
	Curves  []string `json:"curves,omitempty"`
	Derived int      `json:"derived"`
	Errors  []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a world config",
		Long: `Validate a world config without placing anything.

Checks YAML syntax and field constraints, then builds the engine so that
cross-layer problems (duplicate derived targets, binding cycles, kernel
radius limits) are caught as well.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("config file not found: %s", path))
	}

	formatter.VerboseLog("Loading config %s", path)
	cfg, err := config.Load(path)
	if err != nil {
		return outputValidationErrors(formatter, []string{err.Error()})
	}

	e, err := engine.NewFromConfig(cfg, engine.WithLogger(opts.Logger(formatter.GetErrWriter())))
	if err != nil {
		return outputValidationErrors(formatter, []string{err.Error()})
	}

	result := ValidationResult{
		Valid:   true,
		Grid:    e.Size().String(),
		Layers:  e.Layers(),
		Curves:  e.Curves(),
		Derived: len(cfg.Derived),
	}
	for _, k := range e.Kinds() {
		result.Kinds = append(result.Kinds, k.Name)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Config valid: %s grid\n", result.Grid)
	fmt.Fprintf(w, "  layers:  %v\n", result.Layers)
	fmt.Fprintf(w, "  curves:  %v\n", result.Curves)
	fmt.Fprintf(w, "  kinds:   %v\n", result.Kinds)
	fmt.Fprintf(w, "  derived: %d\n", result.Derived)
	return nil
}

// outputValidateError outputs a command-level error (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs validation failures (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, errs []string) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    ErrCodeInvalidConfig,
				Message: errs[0],
			},
		}
		if err := encodeIndented(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", ErrCodeInvalidConfig, err)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func encodeIndented(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
