package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCodeThroughWrapping(t *testing.T) {
	base := NotFound("Item not found")
	wrapped := fmt.Errorf("get item: %w", base)

	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(wrapped, CodeForbidden))
	assert.False(t, IsCode(errors.New("plain"), CodeNotFound))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("smtp: connection refused")
	err := Wrap(cause, CodeDelivery, "Failed to send verification email")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "delivery")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithMeta(t *testing.T) {
	err := New(CodeVerificationRequired, "verify first").WithMeta("email", "a@b.com")

	ae, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", ae.Meta["email"])
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:           http.StatusBadRequest,
		CodeConflict:             http.StatusBadRequest,
		CodeInvalidCredentials:   http.StatusBadRequest,
		CodeVerificationRequired: http.StatusBadRequest,
		CodeInvalidCode:          http.StatusBadRequest,
		CodeExpiredCode:          http.StatusBadRequest,
		CodeAlreadyVerified:      http.StatusBadRequest,
		CodeNoImages:             http.StatusBadRequest,
		CodeNotFound:             http.StatusNotFound,
		CodeForbidden:            http.StatusForbidden,
		CodeAuthToken:            http.StatusUnauthorized,
		CodeDelivery:             http.StatusInternalServerError,
		CodeInternal:             http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), code)
	}
}
