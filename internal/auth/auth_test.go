package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestMaker(t *testing.T) *TokenMaker {
	t.Helper()
	maker, err := NewTokenMaker("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return maker
}

func TestNewTokenMaker_RejectsBadSecrets(t *testing.T) {
	tests := []struct {
		name            string
		access, refresh string
	}{
		{"empty access", "", "r"},
		{"empty refresh", "a", ""},
		{"same secret", "same", "same"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTokenMaker(tt.access, tt.refresh, time.Minute, time.Minute); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestAccessToken(t *testing.T) {
	maker := newTestMaker(t)
	token, err := maker.GenerateAccessToken("user-1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := maker.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "alice" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := maker.ValidateRefreshToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token must not pass as refresh token, got %v", err)
	}
	if _, err := maker.ValidateAccessToken(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered token must be invalid, got %v", err)
	}
}

func TestRefreshToken(t *testing.T) {
	maker := newTestMaker(t)
	token, err := maker.GenerateRefreshToken("user-1")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := maker.ValidateRefreshToken(token)
	if err != nil || claims.UserID != "user-1" {
		t.Fatalf("validate refresh: %v %+v", err, claims)
	}
}

func TestExpiredToken(t *testing.T) {
	maker := newTestMaker(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	maker.now = func() time.Time { return issued }
	token, err := maker.GenerateAccessToken("user-1", "alice")
	if err != nil {
		t.Fatal(err)
	}

	maker.now = func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := maker.ValidateAccessToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestPassword(t *testing.T) {
	hashed, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if hashed == "correct horse" {
		t.Fatal("password stored in clear text")
	}
	if err := CheckPassword("correct horse", hashed); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	if err := CheckPassword("wrong", hashed); err == nil {
		t.Error("wrong password accepted")
	}
}
