package scan

import (
	"errors"
	"fmt"
)

var ErrRunInProgress = errors.New("another run is in progress")

// PreconditionError aborts a run before any store access.
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string { return e.Err.Error() }
func (e *PreconditionError) Unwrap() error { return e.Err }

// FetchError aborts a run whose date bucket could not be loaded.
type FetchError struct {
	Date string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch bookings for %s: %v", e.Date, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
