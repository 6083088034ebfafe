package query

import (
	"errors"
	"fmt"
)

// Sentinel errors for query construction and binding.
var (
	ErrEmptySet       = errors.New("predicate set is empty")
	ErrMissingParam   = errors.New("missing bound parameter")
	ErrUnknownDialect = errors.New("unknown sql dialect")
)

// ConfigurationError reports a predicate that was constructed incorrectly.
// It is returned by the predicate constructors, before any query runs.
type ConfigurationError struct {
	Column string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("predicate on %q: %s", e.Column, e.Reason)
}

func configErr(column, format string, args ...any) error {
	return &ConfigurationError{Column: column, Reason: fmt.Sprintf(format, args...)}
}
