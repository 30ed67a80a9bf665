package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors wrap one of these so callers can classify them with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrSerialization = errors.New("malformed payload")
	ErrConflict      = errors.New("conflict")
	ErrStorage       = errors.New("storage fault")
	ErrForbidden     = errors.New("forbidden")
)

// ValidationError reports a missing or invalid field
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError wraps a failure of the underlying database
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a storage fault of operation op
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// SerializationError wraps a payload decoding failure
func SerializationError(err error) error {
	return fmt.Errorf("%w: %v", ErrSerialization, err)
}

type kindError struct {
	message string
	kind    error
}

func (e *kindError) Error() string { return e.message }
func (e *kindError) Unwrap() error { return e.kind }

// NewKindError creates a sentinel with its own message that classifies as kind
func NewKindError(message string, kind error) error {
	return &kindError{message: message, kind: kind}
}
