package facts

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn = errors.New("column not in row")
	ErrColumnType    = errors.New("unexpected column type")
)

// StorageError is returned when the warehouse rejects or fails a query. It
// carries the query text as written, before placeholder binding.
type StorageError struct {
	Query string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("fact query failed: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
