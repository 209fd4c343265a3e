package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"olh/internal/domain"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the caller identity. Subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. ttl must be positive.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be > 0")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the user.
func (t *TokenIssuer) Issue(userID string, role domain.Role) (string, error) {
	now := t.now().UTC()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Parse verifies a token and returns the principal it names.
func (t *TokenIssuer) Parse(raw string) (domain.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return domain.Principal{UserID: claims.Subject, Role: role}, nil
}
