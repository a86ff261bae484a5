package utils

import (
	"net/http"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"report.txt", false},
		{"with spaces", false},
		{"", true},
		{"   ", true},
		{"a/b", true},
		{`a\b`, true},
		{strings.Repeat("x", 256), true},
		{strings.Repeat("x", 255), false},
	}

	for _, tt := range tests {
		err := ValidateName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !IsStatus(err, http.StatusBadRequest) {
			t.Errorf("ValidateName(%q) should fail with bad request, got %v", tt.name, err)
		}
	}
}

func TestValidatePIN(t *testing.T) {
	tests := []struct {
		pin     string
		wantErr bool
	}{
		{"1234", false},
		{"12345678", false},
		{"123", true},
		{"123456789", true},
		{"12a4", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidatePIN(tt.pin)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePIN(%q) error = %v, wantErr %v", tt.pin, err, tt.wantErr)
		}
	}
}

func TestParseObjectID(t *testing.T) {
	if _, err := ParseObjectID("507f1f77bcf86cd799439011"); err != nil {
		t.Errorf("valid hex id should parse, got %v", err)
	}

	_, err := ParseObjectID("not-an-id")
	if err == nil {
		t.Fatal("malformed id should fail")
	}
	if !IsStatus(err, http.StatusBadRequest) {
		t.Errorf("malformed id should map to bad request, got %v", err)
	}
}
