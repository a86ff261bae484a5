package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ApiError carries the error taxonomy the services raise: the status code
// picks the category, the message is safe to surface to the caller.
type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewBadRequest(format string, args ...interface{}) *ApiError {
	return &ApiError{StatusCode: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NewNotFound(format string, args ...interface{}) *ApiError {
	return &ApiError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(format string, args ...interface{}) *ApiError {
	return &ApiError{StatusCode: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthorized(format string, args ...interface{}) *ApiError {
	return &ApiError{StatusCode: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func NewInternal(format string, args ...interface{}) *ApiError {
	return &ApiError{StatusCode: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...)}
}

// NewPayloadTooLarge flags an upload over the per-file size limit.
func NewPayloadTooLarge(format string, args ...interface{}) *ApiError {
	return &ApiError{StatusCode: http.StatusRequestEntityTooLarge, Message: fmt.Sprintf(format, args...)}
}

// NewInsufficientStorage flags a write that would overflow the owner's
// quota.
func NewInsufficientStorage(format string, args ...interface{}) *ApiError {
	return &ApiError{StatusCode: http.StatusInsufficientStorage, Message: fmt.Sprintf(format, args...)}
}

// AsApiError unwraps err into an ApiError, falling back to an internal error
// so controllers never leak raw database or I/O messages.
func AsApiError(err error) *ApiError {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &ApiError{StatusCode: http.StatusInternalServerError, Message: "internal server error"}
}

func IsStatus(err error, statusCode int) bool {
	var apiErr *ApiError
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}
