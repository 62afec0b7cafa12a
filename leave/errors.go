/*
errors.go - Error types for the entitlement engine

ERROR CATEGORIES:
  1. Validation - field-scoped, user correctable (ValidationError)
  2. Not found - ledger or request lookups
  3. Conflict - uniqueness violations surfaced by the store
  4. Transition - status changes the lifecycle does not allow

SEE ALSO:
  - validate.go: builds ValidationError
  - api/handlers.go: maps these to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/staff"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the parent of every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrLedgerNotFound is returned by stores when no ledger exists for the key.
	ErrLedgerNotFound = errors.New("annual leave ledger not found")

	// ErrRequestNotFound is returned by stores for unknown request ids.
	ErrRequestNotFound = errors.New("request not found")

	// ErrDuplicateLedger is returned when (staff, year, category) already has a ledger.
	ErrDuplicateLedger = errors.New("annual leave ledger already exists")

	// ErrInvalidTransition is returned for status changes other than PENDING to a decision.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownCategory is returned for categories outside the closed set.
	ErrUnknownCategory = errors.New("unknown leave category")
)

// =============================================================================
// VALIDATION ERROR - field scoped messages
// =============================================================================

// ValidationError maps input field names to messages.
type ValidationError struct {
	Fields map[string][]string `json:"fields"`
}

// Add appends a message to field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Has reports whether field carries at least one message.
func (e *ValidationError) Has(field string) bool {
	return e != nil && len(e.Fields[field]) > 0
}

// Empty reports whether nothing was recorded.
func (e *ValidationError) Empty() bool { return e == nil || len(e.Fields) == 0 }

// Err returns nil when empty so callers can `return verr.Err()`.
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e.Fields[f], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the caller can fix the input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, calendar.ErrRangeTooLong) ||
		errors.Is(err, staff.ErrSupervisorCycle) ||
		errors.Is(err, staff.ErrInvalidProfile)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLedgerNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, staff.ErrNotFound) ||
		errors.Is(err, staff.ErrRoleNotFound)
}

// IsConflict returns true for uniqueness violations.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateLedger) ||
		errors.Is(err, calendar.ErrDuplicateFreeDay) ||
		errors.Is(err, staff.ErrDuplicateRole)
}
