package serverutils

import (
	"fmt"
	"net/http"
)

// AppError carries the HTTP status a service error should be reported with.
type AppError struct {
	Code    int
	Message string
	Err     error
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

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func BadRequest(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, message, err)
}

func NotFound(message string, err error) *AppError {
	return NewAppError(http.StatusNotFound, message, err)
}

func UnsupportedMediaType(message string, err error) *AppError {
	return NewAppError(http.StatusUnsupportedMediaType, message, err)
}

func Unprocessable(message string, err error) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, message, err)
}

func BadGateway(message string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, message, err)
}
