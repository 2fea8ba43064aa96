package api

import (
	"fmt"
	"net/http"
)

// ApiError is the wire error envelope. Type names the failure class,
// Message is safe to show to callers. Err carries server-side detail
// and is never serialized.
type ApiError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Type:       "ValidationError",
		Message:    message,
	}
}

func NewNotFoundError(message string) *ApiError {
	return &ApiError{
		StatusCode: http.StatusNotFound,
		Type:       "NotFoundError",
		Message:    message,
	}
}

func NewUnauthorizedError(message string) *ApiError {
	return &ApiError{
		StatusCode: http.StatusUnauthorized,
		Type:       "UnauthorizedError",
		Message:    message,
	}
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Type:       "InternalError",
		Message:    "internal server error",
		Err:        err,
	}
}
