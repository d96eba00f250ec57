package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("pay record not found")
	ErrRecordExists   = errors.New("pay record already exists for provider and period")
	// ErrVersionConflict reports a stale-version mutation. The caller retries
	// with a fresh snapshot; the engine never retries on its own.
	ErrVersionConflict = errors.New("pay record was modified concurrently")
)

// ValidationError rejects malformed input before calculation. Financial
// quantities are never defaulted or clamped to recover.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConfigurationError blocks a calculation entirely: with an unknown enum
// value or an unresolvable policy no number the engine produces can be
// trusted.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// StateTransitionError reports an illegal lifecycle operation together with
// the state the record was in and the one requested.
type StateTransitionError struct {
	Current   string
	Attempted string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot move pay record from %s to %s", e.Current, e.Attempted)
}
