package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidLimit is returned when FetchRecentIncomplete gets a non-positive limit.
var ErrInvalidLimit = errors.New("limit must be positive")

// StorageError wraps a failure of the underlying persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// WrapStorage returns nil for a nil err, otherwise a *StorageError for op.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorage reports whether err carries a *StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
