package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both "does not exist" and "exists but belongs to someone else".
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")

	ErrUpdateFailed     = errors.New("update failed")
	ErrGenerationFailed = errors.New("image generation failed")
	ErrExtractionFailed = errors.New("context extraction failed")
)

// ValidationError reports malformed client input. It is always raised before
// any storage access or external call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// DatabaseError wraps a storage failure with the operation that produced it.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// WrapDatabase returns nil for a nil err, otherwise a *DatabaseError.
func WrapDatabase(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsDatabase reports whether err is (or wraps) a *DatabaseError.
func IsDatabase(err error) bool {
	var d *DatabaseError
	return errors.As(err, &d)
}
