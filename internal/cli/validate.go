package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rklop/SURF-2025/internal/compiler"
	"github.com/rklop/SURF-2025/internal/ir"
)

// ValidationResult is the JSON payload of the validate command.
type ValidationResult struct {
	Valid    bool                    `json:"valid"`
	Tables   int                     `json:"tables"`
	Checks   int                     `json:"checks"`
	Errors   []ir.ValidationError    `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <descriptor.cue>",
		Short: "Validate a schema descriptor without verifying anything",
		Long: `Compile a CUE schema descriptor and report validation errors and
reference-cycle warnings. Faster than a full verification for
development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, descPath string) error {
	formatter := formatterFor(opts, cmd)

	desc, err := LoadDescriptor(descPath)
	if err != nil {
		// Surface descriptor validation errors as a report instead of
		// a bare failure.
		var ide *compiler.InvalidDescriptorError
		if errors.As(err, &ide) {
			result := &ValidationResult{Valid: false, Errors: ide.Errors}
			if outErr := outputValidation(formatter, result); outErr != nil {
				return outErr
			}
			return NewExitError(ExitFailure, "descriptor is invalid")
		}
		return err
	}

	result := &ValidationResult{
		Valid:    true,
		Tables:   len(desc.Bundle.Schema.Tables),
		Checks:   len(desc.Bundle.Checks),
		Warnings: compiler.AnalyzeCycles(desc.Bundle.Schema),
	}
	return outputValidation(formatter, result)
}

func outputValidation(f *OutputFormatter, r *ValidationResult) error {
	if f.JSON() {
		return f.Success(r)
	}
	if !r.Valid {
		fmt.Fprintf(f.Writer, "invalid: %d error(s)\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(f.Writer, "  %s\n", e.Error())
		}
		return nil
	}
	fmt.Fprintf(f.Writer, "valid: %d table(s), %d check(s)\n", r.Tables, r.Checks)
	for _, w := range r.Warnings {
		fmt.Fprintf(f.Writer, "  %s: %s\n", w.Level, w.Message)
	}
	return nil
}
