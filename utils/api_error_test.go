package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsApiErrorUnwraps(t *testing.T) {
	base := NewNotFound("file not found")
	wrapped := fmt.Errorf("fetching metadata: %w", base)

	got := AsApiError(wrapped)
	if got.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", got.StatusCode, http.StatusNotFound)
	}
	if got.Message != "file not found" {
		t.Errorf("message = %q, want the original message", got.Message)
	}
}

func TestAsApiErrorFallback(t *testing.T) {
	got := AsApiError(errors.New("connection reset by peer"))
	if got.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", got.StatusCode, http.StatusInternalServerError)
	}
	if got.Message != "internal server error" {
		t.Errorf("raw error message leaked: %q", got.Message)
	}
}

func TestConstructorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *ApiError
		want int
	}{
		{"bad request", NewBadRequest("x"), http.StatusBadRequest},
		{"unauthorized", NewUnauthorized("x"), http.StatusUnauthorized},
		{"not found", NewNotFound("x"), http.StatusNotFound},
		{"conflict", NewConflict("x"), http.StatusConflict},
		{"payload too large", NewPayloadTooLarge("x"), http.StatusRequestEntityTooLarge},
		{"insufficient storage", NewInsufficientStorage("x"), http.StatusInsufficientStorage},
		{"internal", NewInternal("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", tt.err.StatusCode, tt.want)
			}
		})
	}
}

func TestIsStatus(t *testing.T) {
	err := NewConflict("name taken")
	if !IsStatus(err, http.StatusConflict) {
		t.Error("IsStatus should match the conflict status")
	}
	if IsStatus(err, http.StatusNotFound) {
		t.Error("IsStatus should not match a different status")
	}
	if IsStatus(errors.New("plain"), http.StatusConflict) {
		t.Error("IsStatus should be false for non-ApiError values")
	}
}
