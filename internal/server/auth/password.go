package auth

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

var (
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong   = errors.New("password must be at most 72 bytes long")
	ErrPasswordNoLetter  = errors.New("password must contain at least one letter")
	ErrPasswordNoDigit   = errors.New("password must contain at least one number")
	ErrPasswordTooCommon = errors.New("password contains a common pattern")
	ErrInvalidPassword   = errors.New("invalid password")
)

var commonPatterns = []string{
	"12345", "123456", "1234567", "12345678",
	"abcdef", "qwerty", "password", "00000", "11111",
}

// ValidatePassword enforces the account password rules.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return ErrPasswordNoLetter
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}

	lower := strings.ToLower(password)
	for _, p := range commonPatterns {
		if strings.Contains(lower, p) {
			return ErrPasswordTooCommon
		}
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a candidate password.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}
