package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestTaxonomyConstructorsKeepMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     string
	}{
		{
			name:     "validation",
			err:      NewValidationError("ADR must have at least one owner"),
			sentinel: ErrValidation,
			want:     "ADR must have at least one owner",
		},
		{
			name:     "not found",
			err:      NewNotFoundError("Environment not found for legacy value: %s", "qa"),
			sentinel: ErrNotFound,
			want:     "Environment not found for legacy value: qa",
		},
		{
			name:     "conflict",
			err:      NewConflictError("duplicate"),
			sentinel: ErrConflict,
			want:     "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, Is(tt.err, tt.sentinel))
		})
	}
}

func TestMarksSurviveWrapping(t *testing.T) {
	err := Wrap(NewConflictError("duplicate"), "create instance")

	assert.True(t, IsConflictError(err))
	assert.False(t, IsValidationError(err))
	assert.Equal(t, "create instance: duplicate", err.Error())
}

func TestTransportError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewTransportError(cause, "POST /graphql")

	assert.True(t, IsTransportError(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "POST /graphql")
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, CodeValidation, Code(NewValidationError("x")))
	assert.Equal(t, CodeNotFound, Code(Wrap(NewNotFoundError("x"), "ctx")))
	assert.Equal(t, CodeConflict, Code(NewConflictError("x")))
	assert.Equal(t, CodeTransport, Code(NewTransportError(New("x"), "y")))
	assert.Equal(t, CodeInvalidInput, Code(Wrap(ErrInvalidRequest, "bad id")))
	invalid := NewInvalidRequestError("invalid ID %q", "abc")
	assert.Equal(t, CodeInvalidInput, Code(invalid))
	assert.Equal(t, `invalid ID "abc"`, invalid.Error())
	assert.Equal(t, CodeInternal, Code(New("boom")))
}

func TestFromCodeRoundTrip(t *testing.T) {
	for _, sentinel := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrTransport, ErrInvalidRequest} {
		assert.Equal(t, sentinel, FromCode(Code(sentinel)))
	}
	assert.Nil(t, FromCode("SOMETHING_ELSE"))
}

func TestGetStack(t *testing.T) {
	err := Wrap(New("root"), "context")
	assert.NotNil(t, GetStack(err))
}
