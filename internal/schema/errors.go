package schema

import (
	"errors"
	"fmt"
)

// Stage identifies the pipeline stage at which a failure occurred.
// Every user-visible error carries its stage.
type Stage string

const (
	StageBinding     Stage = "binding"
	StageParsing     Stage = "parsing"
	StageTranslation Stage = "translation"
	StageSolving     Stage = "solving"
)

// MismatchError reports an unresolvable identifier or a type conflict
// between a query and the schema.
//
// Fatal for the affected query pair: the orchestrator reports it to the
// caller and never retries.
type MismatchError struct {
	Stage   Stage
	Table   string
	Column  string
	Message string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("%s: %s.%s: %s", e.Stage, e.Table, e.Column, e.Message)
	case e.Table != "":
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Table, e.Message)
	case e.Column != "":
		return fmt.Sprintf("%s: column %s: %s", e.Stage, e.Column, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
}

// IsMismatch reports whether err is (or wraps) a MismatchError.
func IsMismatch(err error) bool {
	var me *MismatchError
	return errors.As(err, &me)
}

// TypeError builds a MismatchError for an inconsistent type usage,
// e.g. comparing text to integer without a cast.
func TypeError(left, right Type, context string) *MismatchError {
	return &MismatchError{
		Stage:   StageBinding,
		Message: fmt.Sprintf("type mismatch in %s: %s vs %s", context, left, right),
	}
}
