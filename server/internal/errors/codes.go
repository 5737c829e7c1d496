package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type for pipeline operations.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed input (empty participants, bad id format, empty message).
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeNotFound indicates the referenced session or agent does not exist for this caller.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodePermissionDenied indicates the caller is not a participant of the referenced session.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	// ErrCodeRateLimitExceeded indicates the per-user send rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeLLMAPIError indicates the reply generator failed.
	ErrCodeLLMAPIError ErrorCode = "LLM_API_ERROR"
	// ErrCodeLLMAPITimeout indicates the reply generator exceeded its timeout.
	ErrCodeLLMAPITimeout ErrorCode = "LLM_API_TIMEOUT"
	// ErrCodeAPIKeyMissing indicates the reply generator is misconfigured upstream.
	ErrCodeAPIKeyMissing ErrorCode = "API_KEY_MISSING"
	// ErrCodeSystem indicates an unclassified internal failure.
	ErrCodeSystem ErrorCode = "SYSTEM_ERROR"
)

// PipelineError represents a structured error for conversation pipeline operations.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *PipelineError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// Validation creates a validation error with a field-specific message.
func Validation(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeValidation, Message: msg}
}

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *PipelineError {
	return &PipelineError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not found error.
func NotFound(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeNotFound, Message: msg}
}

// PermissionDenied creates a permission denied error.
func PermissionDenied(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodePermissionDenied, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// LLMAPIError creates a reply generator failure error.
func LLMAPIError(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeLLMAPIError, Message: msg, Cause: cause}
}

// LLMAPITimeout creates a reply generator timeout error.
func LLMAPITimeout(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeLLMAPITimeout, Message: msg}
}

// APIKeyMissing creates a generator misconfiguration error.
func APIKeyMissing() *PipelineError {
	return &PipelineError{Code: ErrCodeAPIKeyMissing, Message: "LLM API key is not configured"}
}

// System wraps an internal failure. The internal detail stays in Cause and is
// never serialized to clients.
func System(cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeSystem, Message: "internal error, please retry later", Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if pErr, ok := err.(*PipelineError); ok {
		return pErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns SYSTEM_ERROR if the error is not a PipelineError.
func GetCodeFromError(err error) ErrorCode {
	if pErr, ok := err.(*PipelineError); ok {
		return pErr.Code
	}
	return ErrCodeSystem
}

// PublicMessage returns the message safe to serialize to clients.
// Unclassified errors never leak internals.
func PublicMessage(err error) string {
	if pErr, ok := err.(*PipelineError); ok {
		return pErr.Message
	}
	return "internal error, please retry later"
}

// HTTPStatus maps an error code to its transport status. Used only at the
// API boundary; service code never sees HTTP statuses.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodePermissionDenied:
		return http.StatusForbidden
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeLLMAPIError, ErrCodeLLMAPITimeout, ErrCodeAPIKeyMissing:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
