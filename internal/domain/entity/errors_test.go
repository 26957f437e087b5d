package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "first_name", Message: "must not be empty"}
	assert.Equal(t, "validation error on field 'first_name': must not be empty", err.Error())
}

func TestValidationError_InErrorChain(t *testing.T) {
	wrapped := fmt.Errorf("render initials: %w", &ValidationError{Field: "last_name", Message: "must not be empty"})

	var validationErr *ValidationError
	assert.True(t, errors.As(wrapped, &validationErr))
	assert.Equal(t, "last_name", validationErr.Field)
	assert.False(t, errors.Is(wrapped, ErrNotFound))
}

func TestSentinelErrors_Uniqueness(t *testing.T) {
	assert.NotEqual(t, ErrNotFound, ErrInvalidInput)
	assert.True(t, errors.Is(fmt.Errorf("GetCaseInfo: %w", ErrNotFound), ErrNotFound))
}
