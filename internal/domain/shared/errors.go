// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrNoOpenSession   = errors.New("no open session")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStoreFull          = errors.New("storage quota exceeded")
	ErrSerialization      = errors.New("serialization failed")
	ErrStructural         = errors.New("stored data is structurally invalid")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "session", "roster", "statistics"
	Op      string // Operation that failed, e.g., "Create", "Save"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Roster domain errors
var (
	ErrGroupNotFound      = NewDomainError("roster", "Find", ErrNotFound, "group not found")
	ErrGroupAlreadyExists = NewDomainError("roster", "Add", ErrAlreadyExists, "group already exists")
	ErrInvalidGroupName   = NewDomainError("roster", "Validate", ErrInvalidFormat, "invalid group name")
	ErrInvalidStudentName = NewDomainError("roster", "Validate", ErrInvalidFormat, "invalid student name")
	ErrEmptyRoster        = NewDomainError("roster", "Import", ErrEmptyValue, "roster contains no valid groups")
)

// Session domain errors
var (
	ErrSessionNotFound  = NewDomainError("session", "Load", ErrNotFound, "session not found")
	ErrSessionCorrupt   = NewDomainError("session", "Load", ErrStructural, "stored session is corrupt")
	ErrInvalidDate      = NewDomainError("session", "Validate", ErrInvalidFormat, "invalid session date")
	ErrInvalidStartTime = NewDomainError("session", "Validate", ErrInvalidFormat, "invalid start time")
	ErrInvalidRating    = NewDomainError("session", "Validate", ErrValueOutOfRange, "rating is not one of the allowed options")
	ErrInvalidComment   = NewDomainError("session", "Validate", ErrInvalidInput, "invalid comment")
	ErrUnknownField     = NewDomainError("session", "UpdateField", ErrInvalidInput, "unknown session field")
)

// Profile domain errors
var (
	ErrProfileNotFound = NewDomainError("profile", "Load", ErrNotFound, "teacher profile not found")
	ErrWrongPIN        = NewDomainError("profile", "VerifyPIN", ErrInvalidInput, "wrong access PIN")
)
