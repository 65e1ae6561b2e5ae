package common

import (
	"errors"
	"net/http"
)

// AppError carries the code and HTTP status a handler should answer with.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Code + ": " + e.Err.Error()
	default:
		return e.Code + ": " + e.Message
	}
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Status returns the HTTP status, or fallback when none was set.
func (e *AppError) Status(fallback int) int {
	if e == nil || e.HTTPStatus == 0 {
		return fallback
	}
	return e.HTTPStatus
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Unauthorized is the AppError for rejected credentials or tokens.
func Unauthorized(code, message string, err error) *AppError {
	return NewAppError(code, message, http.StatusUnauthorized, err)
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsAppError reports whether err wraps an AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}
