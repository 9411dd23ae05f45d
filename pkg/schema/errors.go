package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodePersistence       = "PERSISTENCE_ERROR"
	ErrCodeBroadcast         = "BROADCAST_ERROR"
	ErrCodeBridgeUnreachable = "BRIDGE_UNREACHABLE"
	ErrCodePolicy            = "POLICY_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeStore             = "STORE_ERROR"
)

// HookError is the structured error type for all hookline operations.
type HookError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Field   string         `json:"field,omitempty"`
	Cause   error          `json:"-"`
}

func (e *HookError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] field %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *HookError) Unwrap() error {
	return e.Cause
}

// NewError creates a new HookError.
func NewError(code, message string) *HookError {
	return &HookError{Code: code, Message: message}
}

// NewErrorf creates a new HookError with a formatted message.
func NewErrorf(code, format string, args ...any) *HookError {
	return &HookError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithField attaches the offending input field to the error.
func (e *HookError) WithField(field string) *HookError {
	e.Field = field
	return e
}

// WithCause attaches an underlying cause.
func (e *HookError) WithCause(err error) *HookError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *HookError) WithDetails(details map[string]any) *HookError {
	e.Details = details
	return e
}

// CodeOf returns the hookline error code carried by err (unwrapping as
// needed), or "" when no HookError is present in the chain.
func CodeOf(err error) string {
	var he *HookError
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}
