package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound = errors.New("checkout: shipping profile not found")
	ErrPersistence     = errors.New("checkout: persistence failure")
	ErrValidation      = errors.New("checkout: invalid request")
)

// PersistenceError wraps a store failure that occurred after a successful
// reservation. By the time the caller sees it the reservation has already
// been compensated.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkout: persistence failure: %v", e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
