package verifier

import (
	"errors"
	"fmt"

	"github.com/rklop/SURF-2025/internal/schema"
	"github.com/rklop/SURF-2025/internal/solver"
	"github.com/rklop/SURF-2025/internal/sqlparse"
)

// ErrorCode categorizes verification failures.
type ErrorCode string

const (
	// CodeSchemaMismatch indicates a query references tables or columns
	// the schema does not have, or uses them at conflicting types.
	CodeSchemaMismatch ErrorCode = "SCHEMA_MISMATCH"

	// CodeUnsupportedSyntax indicates the query uses constructs outside
	// the supported subset.
	CodeUnsupportedSyntax ErrorCode = "UNSUPPORTED_SYNTAX"

	// CodeSolverTimeout indicates the deadline expired mid-search.
	CodeSolverTimeout ErrorCode = "SOLVER_TIMEOUT"

	// CodeSolverResource indicates the solver exhausted its step budget.
	CodeSolverResource ErrorCode = "SOLVER_RESOURCE"

	// CodeInternal indicates a defect in the verifier itself.
	CodeInternal ErrorCode = "INTERNAL"
)

// Error is a categorized verification failure. Cause retains the
// underlying stage error for errors.Is/As inspection.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the stage error.
func (e *Error) Unwrap() error { return e.Cause }

// CodeOf extracts the error code, or CodeInternal for uncategorized
// errors.
func CodeOf(err error) ErrorCode {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return CodeInternal
}

// Classify wraps a stage error with its category so CodeOf can report
// it. Errors that already carry a code pass through unchanged.
func Classify(err error) error { return classify(err) }

// classify wraps a stage error with its category.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ve *Error
	if errors.As(err, &ve) {
		return err
	}
	code := CodeInternal
	switch {
	case schema.IsMismatch(err):
		code = CodeSchemaMismatch
	case sqlparse.IsUnsupported(err):
		code = CodeUnsupportedSyntax
	case solver.IsTimeout(err):
		code = CodeSolverTimeout
	case solver.IsResource(err):
		code = CodeSolverResource
	default:
		var pe *sqlparse.ParseError
		if errors.As(err, &pe) {
			code = CodeUnsupportedSyntax
		}
	}
	return &Error{Code: code, Message: err.Error(), Cause: err}
}
