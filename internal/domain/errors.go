package domain

import (
	"errors"
	"net/http"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

const (
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeMessagesRequired  ErrorCode = "CHAT_MESSAGES_REQUIRED"
	ErrCodeMissingAPIKey     ErrorCode = "CONFIG_MISSING_API_KEY"
	ErrCodeLLM               ErrorCode = "CHAT_LLM_ERROR"
	ErrCodeTurnInProgress    ErrorCode = "CHAT_TURN_IN_PROGRESS"
	ErrCodeTaskNotFound      ErrorCode = "TASK_NOT_FOUND"
	ErrCodeTaskInvalidUpdate ErrorCode = "TASK_INVALID_UPDATE"
	ErrCodeUnauthorized      ErrorCode = "AUTH_UNAUTHORIZED"
	ErrCodePasswordRequired  ErrorCode = "AUTH_PASSWORD_REQUIRED"
	ErrCodeInvalidPassword   ErrorCode = "AUTH_INVALID_CREDENTIALS"
	ErrCodeRateLimited       ErrorCode = "AUTH_RATE_LIMITED"
	ErrCodeResetFailed       ErrorCode = "SYSTEM_RESET_FAILED"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// Error is an error with a code and an HTTP status.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with the given code, status and message.
func NewError(code ErrorCode, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// WrapError creates an Error that wraps err.
func WrapError(code ErrorCode, status int, message string, err error) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	ErrMessagesRequired = NewError(ErrCodeMessagesRequired, http.StatusBadRequest, "messages array is required")
	ErrMissingAPIKey    = NewError(ErrCodeMissingAPIKey, http.StatusInternalServerError, "model API key is not configured")
	ErrTurnInProgress   = NewError(ErrCodeTurnInProgress, http.StatusConflict, "an identical message is still being processed")
	ErrTaskNotFound     = NewError(ErrCodeTaskNotFound, http.StatusNotFound, "task not found")
	ErrUnauthorized     = NewError(ErrCodeUnauthorized, http.StatusUnauthorized, "unauthorized")
)

// AsError extracts an *Error from err, falling back to an internal error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapError(ErrCodeInternal, http.StatusInternalServerError, "internal error", err)
}
