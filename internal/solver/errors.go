package solver

import (
	"errors"
	"fmt"
	"time"
)

// ResourceError reports that the search exhausted its step budget
// before reaching a verdict. The caller may retry with a larger budget.
type ResourceError struct {
	Steps int64
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("solving: step budget exhausted after %d steps", e.Steps)
}

// IsResource reports whether err is (or wraps) a ResourceError.
func IsResource(err error) bool {
	var re *ResourceError
	return errors.As(err, &re)
}

// TimeoutError reports that the context expired mid-search.
type TimeoutError struct {
	Elapsed time.Duration
	Cause   error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("solving: timed out after %s: %v", e.Elapsed, e.Cause)
}

// Unwrap exposes the context error for errors.Is checks.
func (e *TimeoutError) Unwrap() error { return e.Cause }

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
