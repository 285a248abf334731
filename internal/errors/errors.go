// Package errors provides standardized domain errors with codes for the API.
//
// Usage:
//
//	// In services - return typed errors
//	if alreadyPending {
//	    return errors.DuplicateInvitation("an invitation for this email is already pending")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrExpired) {
//	    response.Gone(w, err.Error(), logger)
//	    return
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound             Code = "NOT_FOUND"
	CodeValidation           Code = "VALIDATION"
	CodeForbidden            Code = "FORBIDDEN"
	CodeInternal             Code = "INTERNAL"
	CodeAuthenticationFailed Code = "AUTHENTICATION_FAILED"
	CodeInvalidScope         Code = "INVALID_SCOPE"
	CodeInvalidToken         Code = "INVALID_TOKEN"
	CodeDuplicateInvitation  Code = "DUPLICATE_INVITATION"
	CodeAlreadyUsed          Code = "ALREADY_USED"
	CodeExpired              Code = "EXPIRED"
	CodeNotPending           Code = "NOT_PENDING"
	CodeRateLimited          Code = "RATE_LIMITED"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeInvalidScope:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeAuthenticationFailed, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeDuplicateInvitation, CodeAlreadyUsed, CodeNotPending:
		return http.StatusConflict
	case CodeExpired:
		return http.StatusGone
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error. The cause is available for logging
// via Error()/Unwrap() but handlers only ever surface Message.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound             = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation           = &Error{Code: CodeValidation, Message: "validation error"}
	ErrForbidden            = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrInternal             = &Error{Code: CodeInternal, Message: "internal error"}
	ErrAuthenticationFailed = &Error{Code: CodeAuthenticationFailed, Message: "authentication failed"}
	ErrInvalidScope         = &Error{Code: CodeInvalidScope, Message: "invalid scope"}
	ErrInvalidToken         = &Error{Code: CodeInvalidToken, Message: "invalid or expired token"}
	ErrDuplicateInvitation  = &Error{Code: CodeDuplicateInvitation, Message: "invitation already pending"}
	ErrAlreadyUsed          = &Error{Code: CodeAlreadyUsed, Message: "invitation has already been used"}
	ErrExpired              = &Error{Code: CodeExpired, Message: "invitation has expired"}
	ErrNotPending           = &Error{Code: CodeNotPending, Message: "invitation is no longer pending"}
	ErrRateLimited          = &Error{Code: CodeRateLimited, Message: "too many requests"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// AuthenticationFailed creates an authentication failed error.
func AuthenticationFailed(msg string) *Error {
	return &Error{Code: CodeAuthenticationFailed, Message: msg}
}

// InvalidScope creates an invalid scope error.
func InvalidScope(msg string) *Error {
	return &Error{Code: CodeInvalidScope, Message: msg}
}

// InvalidScopef creates an invalid scope error with formatted message.
func InvalidScopef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidScope, Message: fmt.Sprintf(format, args...)}
}

// DuplicateInvitation creates a duplicate invitation error.
func DuplicateInvitation(msg string) *Error {
	return &Error{Code: CodeDuplicateInvitation, Message: msg}
}

// AlreadyUsed creates an already used error.
func AlreadyUsed(msg string) *Error {
	return &Error{Code: CodeAlreadyUsed, Message: msg}
}

// Expired creates an expired error.
func Expired(msg string) *Error {
	return &Error{Code: CodeExpired, Message: msg}
}

// NotPending creates a not pending error.
func NotPending(msg string) *Error {
	return &Error{Code: CodeNotPending, Message: msg}
}

// RateLimited creates a rate limited error.
func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
