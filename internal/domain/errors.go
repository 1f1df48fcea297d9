// Package domain contains the quote entities and the failures the core can report.
// Domain errors describe business-level outcomes, not transport errors; adapters
// map them to HTTP statuses or CLI exit codes.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates user input was rejected before any state changed.
	ErrValidation = errors.New("validation failed")

	// ErrFormat indicates an import document is not structurally acceptable.
	ErrFormat = errors.New("invalid format")

	// ErrNetwork indicates the remote endpoint could not be reached or answered non-2xx.
	ErrNetwork = errors.New("network failure")

	// ErrStorage indicates the durable key-value slot rejected a read or write.
	ErrStorage = errors.New("storage failure")

	// ErrSyncSuperseded indicates a sync run was discarded because the engine
	// stopped while it was in flight.
	ErrSyncSuperseded = errors.New("sync run superseded")
)

// NotFoundError provides context for not found errors.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a validation error including the invalid value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// FormatError describes why an import document was rejected.
// Index is the offending array element, or -1 when the document itself is wrong.
type FormatError struct {
	Index  int
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid format at element %d: %s", e.Index, e.Reason)
	}

	return "invalid format: " + e.Reason
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// NewFormatError creates a document-level format error.
func NewFormatError(reason string) error {
	return &FormatError{Index: -1, Reason: reason}
}

// NewElementFormatError creates a format error pointing at one array element.
func NewElementFormatError(index int, reason string) error {
	return &FormatError{Index: index, Reason: reason}
}

// NetworkError records a failed exchange with the remote endpoint.
// StatusCode is zero when no response was received.
type NetworkError struct {
	Service    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("service %q returned status %d", e.Service, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("service %q unreachable: %v", e.Service, e.Cause)
	default:
		return fmt.Sprintf("service %q unreachable", e.Service)
	}
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *NetworkError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrNetwork, e.Cause}
	}

	return []error{ErrNetwork}
}

// NewNetworkError creates a network error for a transport failure.
func NewNetworkError(service string, cause error) error {
	return &NetworkError{Service: service, Cause: cause}
}

// NewNetworkStatusError creates a network error for a non-2xx response.
func NewNetworkStatusError(service string, statusCode int) error {
	return &NetworkError{Service: service, StatusCode: statusCode}
}

// StorageError records a failed read or write of a key-value slot.
type StorageError struct {
	Op    string
	Key   string
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("storage %s %q failed: %v", e.Op, e.Key, e.Cause)
	}

	return fmt.Sprintf("storage %s %q failed", e.Op, e.Key)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *StorageError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrStorage, e.Cause}
	}

	return []error{ErrStorage}
}

// NewStorageError creates a storage error for the given operation and key.
func NewStorageError(op, key string, cause error) error {
	return &StorageError{Op: op, Key: key, Cause: cause}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsFormat checks if an error is an import format error.
func IsFormat(err error) bool {
	return errors.Is(err, ErrFormat)
}

// IsNetwork checks if an error is a remote endpoint failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsStorage checks if an error is a storage failure.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
