package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	assert.Equal(t, "limit: must be between 1 and 100", NewValidationError("limit", "must be between 1 and 100").Error())
	assert.Equal(t, "no fields to update", (&ValidationError{Message: "no fields to update"}).Error())
}

func TestIsValidation_Wrapped(t *testing.T) {
	err := fmt.Errorf("save context: %w", NewValidationError("name", "is required"))
	assert.True(t, IsValidation(err))
	assert.False(t, IsDatabase(err))
}

func TestWrapDatabase(t *testing.T) {
	assert.NoError(t, WrapDatabase("insert image", nil))

	cause := errors.New("connection reset")
	err := WrapDatabase("insert image", cause)
	assert.True(t, IsDatabase(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert image")
}

func TestSentinelsCompose(t *testing.T) {
	cause := WrapDatabase("update context", errors.New("deadlock detected"))
	err := fmt.Errorf("%w: %w", ErrUpdateFailed, cause)

	assert.ErrorIs(t, err, ErrUpdateFailed)
	assert.True(t, IsDatabase(err))
	assert.NotErrorIs(t, err, ErrNotFound)
}
