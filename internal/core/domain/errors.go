// Package domain defines the core domain models for ptb-migrate.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a migration error with a structured error code.
// Codes follow the PM-<AREA>-<NNNN> format, where the number mirrors the
// closest HTTP status class.
type DomainError struct {
	Code    string // Error code (e.g., "PM-LOC-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Locating snapshots (LOC)
// ============================================================================

var (
	// ErrSnapshotNotFound indicates no persistence file exists for the base path.
	ErrSnapshotNotFound = NewDomainError("PM-LOC-4040", "could not find the files to convert")
)

// ============================================================================
// Reading and writing pickle data (DEC, ENC)
// ============================================================================

var (
	// ErrDecode indicates the snapshot is truncated or not a valid pickle.
	ErrDecode = NewDomainError("PM-DEC-4000", "failed to decode snapshot")

	// ErrEncode indicates the migrated graph could not be serialized.
	ErrEncode = NewDomainError("PM-ENC-5000", "failed to encode snapshot")
)

// ============================================================================
// Object migration (TYP, STA)
// ============================================================================

var (
	// ErrUnknownType indicates a telegram class with no current equivalent.
	ErrUnknownType = NewDomainError("PM-TYP-4041", "unknown telegram type")

	// ErrUnsupportedState indicates object state that is neither a field
	// map nor a (dict, slots) pair.
	ErrUnsupportedState = NewDomainError("PM-STA-4220", "unsupported object state")
)

// ============================================================================
// Infrastructure (IO, CFG)
// ============================================================================

var (
	// ErrStorage indicates a filesystem failure while reading, backing up
	// or writing a snapshot.
	ErrStorage = NewDomainError("PM-IO-5001", "storage error")

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = NewDomainError("PM-CFG-4001", "invalid configuration")
)
