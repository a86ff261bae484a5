package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      interface{} `json:"error,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func PaginatedSuccessResponse(c *gin.Context, message string, data interface{}, pagination *Pagination) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: pagination,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string, err interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Message: message,
		Error:   err,
	})
}

// ApiErrorResponse writes a service error using its taxonomy status.
func ApiErrorResponse(c *gin.Context, err error) {
	apiErr := AsApiError(err)
	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		BadRequestResponse(c, apiErr.Message, nil)
	case http.StatusUnauthorized:
		UnauthorizedResponse(c, apiErr.Message)
	case http.StatusNotFound:
		NotFoundResponse(c, apiErr.Message)
	case http.StatusConflict:
		ConflictResponse(c, apiErr.Message, nil)
	case http.StatusRequestEntityTooLarge:
		PayloadTooLargeResponse(c, apiErr.Message)
	case http.StatusInsufficientStorage:
		InsufficientStorageResponse(c, apiErr.Message)
	default:
		ErrorResponse(c, apiErr.StatusCode, apiErr.Message, nil)
	}
}

func BadRequestResponse(c *gin.Context, message string, err interface{}) {
	ErrorResponse(c, http.StatusBadRequest, message, err)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

func NotFoundResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message, nil)
}

func ConflictResponse(c *gin.Context, message string, err interface{}) {
	ErrorResponse(c, http.StatusConflict, message, err)
}

func PayloadTooLargeResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusRequestEntityTooLarge, message, nil)
}

func InsufficientStorageResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInsufficientStorage, message, nil)
}
