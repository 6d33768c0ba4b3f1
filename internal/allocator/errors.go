package allocator

import (
	"errors"
	"fmt"
)

// Error classes returned by the allocator.  Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	// ErrNotFound means the referenced exam does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the operation's preconditions are unmet
	// (no bins, no registered candidates, exam already seated).
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict means another allocation on the same exam holds the
	// exam; retry after it completes.
	ErrConflict = errors.New("conflict")
	// ErrStorage wraps any persistence failure.  The transaction has
	// been rolled back.
	ErrStorage = errors.New("storage failure")
)

// storageErr wraps err as a storage failure unless it already carries
// one of the allocator's error classes.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
