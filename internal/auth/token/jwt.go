// Package token encodes and validates the signed access tokens the service
// issues at login. Tokens are stateless: the only claims are the subject
// (username) and the expiry, and nothing is stored server-side.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "aureus/pkg/domain-errors"
)

// Claims is the payload of an access token. Subject carries the username.
type Claims struct {
	jwt.RegisteredClaims
}

// Username returns the token subject.
func (c *Claims) Username() string { return c.Subject }

// Service signs and validates access tokens with a process-wide HS256 key.
// The key and default TTL are fixed at construction and never rotate at
// runtime.
type Service struct {
	signingKey []byte
	issuer     string
	defaultTTL time.Duration
}

func NewService(signingKey string, issuer string, defaultTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		defaultTTL: defaultTTL,
	}
}

// Issue creates a signed token for username expiring after ttl. A zero or
// negative ttl falls back to the configured default (30 minutes unless
// overridden at startup).
func (s *Service) Issue(username string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// Validate parses and verifies a token string. The signature check runs
// before any claim is trusted; a verified token without a subject is still
// rejected.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	return claims, nil
}
