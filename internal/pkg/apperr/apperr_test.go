package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Status(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindConflict:     http.StatusConflict,
		KindUnauthorized: http.StatusUnauthorized,
		KindNotFound:     http.StatusNotFound,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.Status(), kind.String())
	}
}

func TestFrom_KeepsClassifiedErrorThroughWrapping(t *testing.T) {
	base := Conflict("User with email or username already exists")
	wrapped := fmt.Errorf("register: %w", base)

	got := From(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, KindConflict, got.Kind)
	assert.Equal(t, "User with email or username already exists", got.Message)
	assert.True(t, Is(wrapped, KindConflict))
}

func TestFrom_UnknownErrorIsInternal(t *testing.T) {
	cause := errors.New("connection reset")
	got := From(cause)

	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, "Internal server error", got.Message)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, From(nil))
}

func TestError_MessageIncludesCause(t *testing.T) {
	err := Internal("Something went wrong", errors.New("disk full"))
	assert.Equal(t, "Something went wrong: disk full", err.Error())
	assert.Equal(t, "Invalid old password", Validation("Invalid old password").Error())
}
