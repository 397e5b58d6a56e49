package errors

import (
	stderrors "errors"
	"net/http"
)

type AppError struct {
	Code       int    `json:"code"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined errors
var (
	ErrUnauthorized = &AppError{
		Code:       401,
		Message:    "Unauthorized",
		StatusCode: http.StatusUnauthorized,
	}
	ErrNotFound = &AppError{
		Code:       404,
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}
	ErrBadRequest = &AppError{
		Code:       400,
		Message:    "Bad request",
		StatusCode: http.StatusBadRequest,
	}
	ErrInternalServer = &AppError{
		Code:       500,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

func New(code int, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       500,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NotFound builds a 404 with a resource-specific message.
func NotFound(message string) *AppError {
	return New(404, message, http.StatusNotFound, nil)
}

// BadRequest builds a 400 carrying the validation error.
func BadRequest(message string, err error) *AppError {
	return New(400, message, http.StatusBadRequest, err)
}

// As extracts an *AppError from err, falling back to ErrInternalServer.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrInternalServer.Message)
}
