package sqlparse

import (
	"errors"
	"fmt"
)

// ParseError reports malformed input at a byte offset.
type ParseError struct {
	Pos     int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing: offset %d: %s", e.Pos, e.Message)
}

// UnsupportedError reports a syntactically valid construct that lies
// outside the supported algebra.
//
// This is a capability boundary, not a bug: callers must not retry.
type UnsupportedError struct {
	Construct string
	Pos       int
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("parsing: unsupported construct %q at offset %d", e.Construct, e.Pos)
}

// IsUnsupported reports whether err is (or wraps) an UnsupportedError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}
