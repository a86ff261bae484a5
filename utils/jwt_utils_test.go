package utils

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func TestGenerateAndVerifyToken(t *testing.T) {
	userID := primitive.NewObjectID()

	token, err := GenerateToken(userID, ScopeAccess, testSecret, "vaultdrive", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := VerifyToken(token, testSecret)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.UserID != userID.Hex() {
		t.Errorf("UserID = %q, want %q", claims.UserID, userID.Hex())
	}
	if claims.Scope != ScopeAccess {
		t.Errorf("Scope = %q, want %q", claims.Scope, ScopeAccess)
	}
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(primitive.NewObjectID(), ScopeAccess, testSecret, "vaultdrive", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := VerifyToken(token, "other-secret"); err == nil {
		t.Error("token signed with a different secret should not verify")
	}
}

func TestVerifyTokenExpired(t *testing.T) {
	token, err := GenerateToken(primitive.NewObjectID(), ScopeLocker, testSecret, "vaultdrive", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := VerifyToken(token, testSecret); err == nil {
		t.Error("expired token should not verify")
	}
}

func TestGetUserIDFromToken(t *testing.T) {
	userID := primitive.NewObjectID()
	token, err := GenerateToken(userID, ScopeAccess, testSecret, "vaultdrive", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	got, err := GetUserIDFromToken(token, testSecret)
	if err != nil {
		t.Fatalf("GetUserIDFromToken: %v", err)
	}
	if got != userID {
		t.Errorf("user id = %s, want %s", got.Hex(), userID.Hex())
	}
}
