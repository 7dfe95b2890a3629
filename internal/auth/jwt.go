// Package auth provides JWT token issuance and password hashing for
// back-office accounts. Tokens are HS256-signed and carry the user's role so
// the HTTP layer can authorize without a database round trip.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
)

// Token errors.
var (
	// ErrInvalidToken indicates the token failed signature or claim checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the JWT payload of an access token.
type Claims struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies access tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

// NewTokenManager creates a token manager.
func NewTokenManager(secret, issuer string, tokenTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		tokenTTL: tokenTTL,
	}
}

// Issue creates a signed access token for the user.
func (m *TokenManager) Issue(user *domain.User) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string, returning its claims.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TokenTTL returns the configured token lifetime.
func (m *TokenManager) TokenTTL() time.Duration {
	return m.tokenTTL
}
