package auth

import (
	"errors"
	"testing"
	"time"

	"faculty-eval-service/internal/domain"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := CheckPassword(hash, "secret123"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestTokenIssueAndParse(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	token, err := m.Issue(domain.User{ID: "u1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != "u1" {
		t.Fatalf("expected u1, got %s", id)
	}
}

func TestTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	token, _ := m.Issue(domain.User{ID: "u1"})

	other := NewTokenManager("other-secret", time.Hour)
	if _, err := other.Parse(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong secret, got %v", err)
	}

	expired := NewTokenManager("test-secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _ := expired.Issue(domain.User{ID: "u1"})
	if _, err := m.Parse(old); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}
