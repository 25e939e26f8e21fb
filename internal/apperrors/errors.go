// Package apperrors defines the error taxonomy shared by services and
// controllers. Every error carries a short user-facing message; technical
// detail stays in Details/Err and is only ever logged.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation_error"
	ErrorTypeInsufficientUsers ErrorType = "insufficient_users"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeBackend           ErrorType = "backend_error"
	ErrorTypeAuth              ErrorType = "auth_error"
	ErrorTypeForbidden         ErrorType = "forbidden"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Type, e.Message)
	if e.Details != "" {
		fmt.Fprintf(&b, " (%s)", e.Details)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any *AppError of the same type, so callers can write
// errors.Is(err, apperrors.ErrNotFound).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Message == ""
}

// Type sentinels for errors.Is
var (
	ErrValidation        = &AppError{Type: ErrorTypeValidation}
	ErrInsufficientUsers = &AppError{Type: ErrorTypeInsufficientUsers}
	ErrNotFound          = &AppError{Type: ErrorTypeNotFound}
	ErrBackend           = &AppError{Type: ErrorTypeBackend}
	ErrAuth              = &AppError{Type: ErrorTypeAuth}
	ErrForbidden         = &AppError{Type: ErrorTypeForbidden}
)

func firstDetail(details []string) string {
	if len(details) > 0 {
		return details[0]
	}
	return ""
}

// NewValidationError reports a missing or malformed input field
func NewValidationError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: firstDetail(details),
	}
}

// NewInsufficientUsersError reports role pools that have no members. It is an
// operational misconfiguration: retrying will not help until an admin adds
// members to the named roles.
func NewInsufficientUsersError(roles ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeInsufficientUsers,
		Message: "Not enough team members to assign this ticket",
		Code:    http.StatusConflict,
		Details: "empty role pools: " + strings.Join(roles, ", "),
	}
}

// NewNotFoundError reports a lookup by id that returned nothing
func NewNotFoundError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
		Details: firstDetail(details),
	}
}

// NewBackendError wraps a failure reported by the store or an upstream service
func NewBackendError(op string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeBackend,
		Message: "Something went wrong, please try again",
		Code:    http.StatusInternalServerError,
		Details: op,
		Err:     err,
	}
}

// NewUpstreamError is a BackendError for a remote collaborator (LLM, agent)
func NewUpstreamError(op string, err error) *AppError {
	e := NewBackendError(op, err)
	e.Code = http.StatusBadGateway
	return e
}

// NewAuthError reports a missing or invalid session
func NewAuthError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeAuth,
		Message: message,
		Code:    http.StatusUnauthorized,
		Details: firstDetail(details),
	}
}

// NewForbiddenError reports an authenticated caller lacking permission
func NewForbiddenError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: message,
		Code:    http.StatusForbidden,
		Details: firstDetail(details),
	}
}

// As extracts the *AppError from err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsValidation(err error) bool        { return errors.Is(err, ErrValidation) }
func IsInsufficientUsers(err error) bool { return errors.Is(err, ErrInsufficientUsers) }
func IsNotFound(err error) bool          { return errors.Is(err, ErrNotFound) }
func IsBackend(err error) bool           { return errors.Is(err, ErrBackend) }
func IsAuth(err error) bool              { return errors.Is(err, ErrAuth) }
func IsForbidden(err error) bool         { return errors.Is(err, ErrForbidden) }

// StatusCode returns the HTTP status for err, 500 for foreign errors
func StatusCode(err error) int {
	if appErr, ok := As(err); ok && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to show an end user
func PublicMessage(err error) string {
	if appErr, ok := As(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return "Something went wrong, please try again"
}
