// Package domain defines the core domain models for fergando-md.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes follow the format FG-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "FG-SESS-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
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

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
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
// Session Errors (SESS)
// ============================================================================

var (
	// ErrLoggedOut indicates the peer invalidated this device identity.
	ErrLoggedOut = NewDomainError("FG-SESS-4010", "session logged out")

	// ErrReplaced indicates another client took over the session.
	ErrReplaced = NewDomainError("FG-SESS-4011", "session replaced by another device")

	// ErrSessionTerminated indicates the manager reached its terminal state.
	ErrSessionTerminated = NewDomainError("FG-SESS-4100", "session terminated")

	// ErrNotConnected indicates there is no open transport to send on.
	ErrNotConnected = NewDomainError("FG-SESS-5030", "session not connected")
)

// ============================================================================
// Credential Errors (CRED)
// ============================================================================

var (
	// ErrCredentialsAbsent indicates no prior session exists in the store.
	ErrCredentialsAbsent = NewDomainError("FG-CRED-4040", "credentials not found")

	// ErrCredentialsCorrupt indicates stored credentials could not be decoded.
	ErrCredentialsCorrupt = NewDomainError("FG-CRED-4220", "credentials corrupt")

	// ErrCredentialsPersist indicates a save or clear did not reach durable storage.
	ErrCredentialsPersist = NewDomainError("FG-CRED-5001", "credentials persist failed")
)

// ============================================================================
// Command Errors (CMD)
// ============================================================================

var (
	// ErrUnknownCommand indicates no handler is registered for the command name.
	ErrUnknownCommand = NewDomainError("FG-CMD-4040", "unknown command")

	// ErrCommandFailed indicates a handler returned an error or panicked.
	ErrCommandFailed = NewDomainError("FG-CMD-5000", "command failed")

	// ErrInvalidCommandName indicates a registration with an unusable name.
	ErrInvalidCommandName = NewDomainError("FG-CMD-4001", "invalid command name")

	// ErrDuplicateCommand indicates a name registered twice.
	ErrDuplicateCommand = NewDomainError("FG-CMD-4090", "command already registered")
)

// ============================================================================
// Event Errors (EVT)
// ============================================================================

var (
	// ErrMalformedEvent indicates an inbound event that could not be interpreted.
	ErrMalformedEvent = NewDomainError("FG-EVT-4000", "malformed inbound event")
)
