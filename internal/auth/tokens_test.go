package auth

import (
	"errors"
	"testing"
	"time"

	"parley/internal/domain"
)

func TestTokenManager_GenerateAndValidate(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	user := &domain.User{ID: "u-1", Username: "alice"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != "u-1" {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, "u-1")
	}
	if claims.Username != "alice" {
		t.Errorf("claims.Username = %q, want %q", claims.Username, "alice")
	}
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)
	token, err := m.Generate(&domain.User{ID: "u-1", Username: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Validate(expired) error = %v, want ErrExpiredToken", err)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).Generate(&domain.User{ID: "u-1", Username: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokenManager("secret-b", time.Hour).Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate(wrong secret) error = %v, want ErrInvalidToken", err)
	}

	if _, err := NewTokenManager("secret-a", time.Hour).Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate(garbage) error = %v, want ErrInvalidToken", err)
	}
}
