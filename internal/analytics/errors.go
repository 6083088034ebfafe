package analytics

import (
	"errors"
	"fmt"
)

// ErrGroupsUnavailable is returned for a group filter when no group
// resolver is configured.
var ErrGroupsUnavailable = errors.New("group filter requires the enterprise api")

// ValidationError rejects a request before any query runs.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
