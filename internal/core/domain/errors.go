// Package domain defines the core domain models for TabSess.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "TS-SESS-4041")
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
	// ErrSessionNotFound indicates the requested session was not found.
	ErrSessionNotFound = NewDomainError("TS-SESS-4040", "session not found")

	// ErrSessionExpired indicates the session has expired or been evicted.
	// Absent cache entries are reported uniformly as expired.
	ErrSessionExpired = NewDomainError("TS-SESS-4041", "session expired")

	// ErrSessionConflict indicates the session ID already exists.
	ErrSessionConflict = NewDomainError("TS-SESS-4090", "session id conflict")

	// ErrSessionVersionConflict indicates an optimistic lock conflict.
	// The caller may retry against the new session state.
	ErrSessionVersionConflict = NewDomainError("TS-SESS-4091", "session version conflict, please retry")

	// ErrSessionValidation indicates session data validation failed.
	ErrSessionValidation = NewDomainError("TS-SESS-4001", "session validation failed")

	// ErrSessionQuotaExceeded indicates the owner session quota was exceeded.
	ErrSessionQuotaExceeded = NewDomainError("TS-SESS-4002", "owner session quota exceeded")
)

// ============================================================================
// Dataset Errors (DSET)
// ============================================================================

var (
	// ErrDatasetNotFound indicates the source dataset does not exist.
	ErrDatasetNotFound = NewDomainError("TS-DSET-4040", "dataset not found")

	// ErrDatasetNotReady indicates the source dataset is still processing.
	ErrDatasetNotReady = NewDomainError("TS-DSET-4091", "dataset is still processing")

	// ErrDatasetConflict indicates the dataset ID already exists.
	ErrDatasetConflict = NewDomainError("TS-DSET-4090", "dataset id conflict")
)

// ============================================================================
// Transformation Errors (XFRM)
// ============================================================================

var (
	// ErrValidation indicates transformation parameters failed validation.
	// The attempted operation was rejected before touching any state.
	ErrValidation = NewDomainError("TS-XFRM-4001", "invalid transformation parameters")

	// ErrTransformation indicates the transformation failed at runtime,
	// e.g. a numeric aggregation over a non-numeric column.
	ErrTransformation = NewDomainError("TS-XFRM-4220", "transformation failed")
)

// ============================================================================
// History Errors (HIST)
// ============================================================================

var (
	// ErrNothingToUndo indicates undo was called at history position zero.
	ErrNothingToUndo = NewDomainError("TS-HIST-4090", "nothing to undo")

	// ErrNothingToRedo indicates redo was called at the history head.
	ErrNothingToRedo = NewDomainError("TS-HIST-4091", "nothing to redo")
)

// ============================================================================
// Snapshot Errors (SNAP)
// ============================================================================

var (
	// ErrSnapshotCorrupted indicates a snapshot payload failed its
	// integrity check. Fatal for the session; re-initialize from source.
	ErrSnapshotCorrupted = NewDomainError("TS-SNAP-5001", "snapshot payload corrupted")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("TS-SYS-5000", "internal server error")

	// ErrStorageError indicates a cache or catalog layer error.
	ErrStorageError = NewDomainError("TS-SYS-5001", "storage error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("TS-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("TS-SYS-4290", "too many requests")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("TS-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("TS-ARG-1002", "missing required argument")
)
