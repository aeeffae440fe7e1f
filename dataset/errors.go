/*
errors.go - Centralized error types for the dataset engine

PURPOSE:
  All caller-facing failures in one place. Query and mutation errors are
  value-returned and mapped to HTTP statuses by the API layer; only load
  failures abort, because no partial continuation is meaningful there.

ERROR CATEGORIES:
  1. Lookup errors     - unknown table / row / column
  2. Validation errors - bad cell values, mutation rejected
  3. Load errors       - malformed or unreadable source
  4. State errors      - operation requires a prior load
*/
package dataset

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoDataLoaded is returned when an operation requires a prior load.
	ErrNoDataLoaded = errors.New("no data loaded")

	// ErrTableNotFound is returned for an unknown table name.
	ErrTableNotFound = errors.New("table not found")

	// ErrRowNotFound is returned when a row ID does not exist in the table.
	ErrRowNotFound = errors.New("row not found")

	// ErrInvalidColumn is returned when a column does not exist or is the
	// reserved identity column.
	ErrInvalidColumn = errors.New("invalid column")

	// ErrInsufficientData is returned by the forecaster when fewer than the
	// minimum number of monthly points exist.
	ErrInsufficientData = errors.New("not enough data points")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a rejected cell value. The mutation was not applied.
type ValidationError struct {
	Column string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Column, e.Reason)
}

// LoadError reports a malformed or unreadable source. Prior data is untouched.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsClientError reports whether the error is due to invalid caller input
// rather than engine state. The API layer maps these to 400.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrInvalidColumn) || errors.As(err, &ve)
}

// IsNotFound reports whether the error indicates a missing table or row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTableNotFound) || errors.Is(err, ErrRowNotFound)
}
