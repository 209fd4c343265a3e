package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"olh/internal/domain"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"valid", "notes4exam", nil},
		{"too short", "ab1", ErrPasswordTooShort},
		{"too long", strings.Repeat("zx9", 27), ErrPasswordTooLong},
		{"at bcrypt limit", strings.Repeat("zx9", 24), nil},
		{"no letter", "98765432", ErrPasswordNoLetter},
		{"no digit", "onlyletters", ErrPasswordNoDigit},
		{"sequential digits", "abc12345z", ErrPasswordTooCommon},
		{"keyboard row", "Qwerty9zz", ErrPasswordTooCommon},
		{"the word password", "myPassword7", ErrPasswordTooCommon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, err, tt.want)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("notes4exam")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "notes4exam" {
		t.Fatal("hash must not equal the plaintext")
	}

	if err := CheckPassword(hash, "notes4exam"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong4exam"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestTokenIssuer(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		token, err := issuer.Issue("user-1", domain.RoleAdmin)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		p, err := issuer.Parse(token)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if p.UserID != "user-1" || p.Role != domain.RoleAdmin {
			t.Errorf("unexpected principal %+v", p)
		}
	})

	t.Run("rejects other secret", func(t *testing.T) {
		other, _ := NewTokenIssuer("other-secret", time.Hour)
		token, _ := other.Issue("user-1", domain.RoleUser)
		if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("rejects expired token", func(t *testing.T) {
		past, _ := NewTokenIssuer("test-secret", time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _ := past.Issue("user-1", domain.RoleUser)
		if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		if _, err := issuer.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("requires secret", func(t *testing.T) {
		if _, err := NewTokenIssuer(" ", time.Hour); err == nil {
			t.Error("expected error for blank secret")
		}
	})
}
