package utils

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxNameLength = 255

// ParseObjectID converts a hex id from the request path or body, mapping
// malformed input to BadRequest.
func ParseObjectID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, NewBadRequest("invalid object id: %s", id)
	}
	return objID, nil
}

// ValidateName checks a display name for emptiness, length, and path
// separator characters that would corrupt materialized paths.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return NewBadRequest("name must not be empty")
	}
	if len(trimmed) > maxNameLength {
		return NewBadRequest("name exceeds %d characters", maxNameLength)
	}
	if strings.ContainsAny(trimmed, "/\\") {
		return NewBadRequest("name must not contain path separators")
	}
	return nil
}

// ValidatePIN enforces the locker PIN shape: 4 to 8 digits.
func ValidatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return NewBadRequest("pin must be 4 to 8 digits")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return NewBadRequest("pin must contain digits only")
		}
	}
	return nil
}
