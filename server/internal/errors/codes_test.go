package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineErrorFormatting(t *testing.T) {
	err := Validation("content is required")
	require.Equal(t, "[VALIDATION_ERROR] content is required", err.Error())

	cause := errors.New("connection refused")
	wrapped := System(cause)
	require.Contains(t, wrapped.Error(), "SYSTEM_ERROR")
	require.Contains(t, wrapped.Error(), "connection refused")
	require.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestSystemErrorHidesInternals(t *testing.T) {
	cause := errors.New("pq: relation \"event\" does not exist")
	err := System(cause)
	require.NotContains(t, PublicMessage(err), "pq:")
	require.Equal(t, "internal error, please retry later", err.Message)
}

func TestGetCodeFromError(t *testing.T) {
	require.Equal(t, ErrCodeNotFound, GetCodeFromError(NotFound("session not found")))
	require.Equal(t, ErrCodeSystem, GetCodeFromError(errors.New("plain")))
	require.True(t, IsCode(RateLimitExceeded("slow down"), ErrCodeRateLimitExceeded))
	require.False(t, IsCode(errors.New("plain"), ErrCodeValidation))
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodePermissionDenied, http.StatusForbidden},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeLLMAPIError, http.StatusBadGateway},
		{ErrCodeLLMAPITimeout, http.StatusBadGateway},
		{ErrCodeAPIKeyMissing, http.StatusBadGateway},
		{ErrCodeSystem, http.StatusInternalServerError},
		{ErrorCode("UNKNOWN"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			require.Equal(t, tt.status, HTTPStatus(tt.code))
		})
	}
}
