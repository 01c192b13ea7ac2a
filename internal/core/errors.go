package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the referenced lead does not exist.
	ErrNotFound = errors.New("lead not found")

	// ErrConflict is returned when the caller's copy of a lead is stale.
	// Re-read the lead and resubmit.
	ErrConflict = errors.New("lead was modified by someone else")

	// ErrForbidden is returned when the actor does not own the lead.
	ErrForbidden = errors.New("actor does not own this lead")

	// ErrUnauthenticated is returned when no actor is attached to the context.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrCapacityExceeded matches CapacityError and MissingHeadersError.
	ErrCapacityExceeded = errors.New("import rejected before row validation")

	// ErrNothingToImport is returned by Commit when no row was accepted.
	ErrNothingToImport = errors.New("no valid rows to import")

	// ErrInvalidState is returned when an import session step is called out of order.
	ErrInvalidState = errors.New("import session is not in the required state")
)

// CapacityError reports an import with more data rows than allowed.
type CapacityError struct {
	Limit int
	Found int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("File exceeds the maximum of %d data rows. Found %d.", e.Limit, e.Found)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// MissingHeadersError reports required import columns that were not found.
type MissingHeadersError struct {
	Missing []string
}

func (e *MissingHeadersError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

func (e *MissingHeadersError) Unwrap() error { return ErrCapacityExceeded }

// DecodeError reports an import file that could not be read as a table.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s file: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PersistenceError wraps an infrastructure failure from a Store.
// The core never retries these.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err for op. Domain conditions (ErrNotFound,
// ErrConflict, ErrForbidden) pass through unwrapped, and nil stays nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrForbidden) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
