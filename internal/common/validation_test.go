package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Accumulates(t *testing.T) {
	v := NewValidator()
	v.Field("name", "", Required)
	v.Field("data", []byte(nil), Required)

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)
	assert.ErrorIs(t, v.Error(), ErrValidation)
}

func TestValidator_CleanPasses(t *testing.T) {
	v := NewValidator()
	v.Field("name", "doc.pdf", Required)
	v.Field("data", []byte("content"), Required)

	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Error())
}

func TestUUIDRule(t *testing.T) {
	assert.Nil(t, UUID("id", "8f14e45f-ceea-4e77-8cbd-6c1c5f8e2a11"))
	assert.NotNil(t, UUID("id", "not-a-uuid"))
}

func TestAppError(t *testing.T) {
	cause := errors.New("root cause")
	err := NewAppError("SOME_CODE", "something broke", cause)

	assert.Contains(t, err.Error(), "SOME_CODE")
	assert.Contains(t, err.Error(), "something broke")
	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	require.ErrorAs(t, error(err), &appErr)
	assert.Equal(t, "SOME_CODE", appErr.Code)
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "context"))

	wrapped := WrapError(ErrNotFound, "load document")
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Contains(t, wrapped.Error(), "load document")
}
