package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes for the booking workflow
const (
	ErrValidation ErrorCode = iota + 1000
	ErrConflict
	ErrNotFound
	ErrAuthorization
	ErrSignature
	ErrUpstream
	ErrLookup
	ErrInternal
)

// StatusCode maps the error code to an HTTP status. Consumed by the
// error-handling middleware.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrValidation, ErrSignature:
		return http.StatusBadRequest
	case ErrConflict:
		return http.StatusConflict
	case ErrNotFound:
		return http.StatusNotFound
	case ErrAuthorization:
		return http.StatusForbidden
	case ErrUpstream, ErrLookup:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors

func Validation(message string) *AppError {
	return &AppError{Code: ErrValidation, Message: message}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Code: ErrConflict, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Authorization(message string) *AppError {
	return &AppError{Code: ErrAuthorization, Message: message}
}

func Signature(message string) *AppError {
	return &AppError{Code: ErrSignature, Message: message}
}

func Upstream(message string, err error) *AppError {
	return &AppError{Code: ErrUpstream, Message: message, Err: err}
}

func Lookup(message string, err error) *AppError {
	return &AppError{Code: ErrLookup, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

// Is reports whether err is an AppError carrying the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
