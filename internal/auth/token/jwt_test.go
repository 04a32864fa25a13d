package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "aureus/pkg/domain-errors"
)

var tokenService = NewService("test-signing-key", "aureus-test", 30*time.Minute)

func Test_Issue_RoundTrip(t *testing.T) {
	signed, err := tokenService.Issue("newuser", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := tokenService.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "newuser", claims.Username())
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_Issue_DefaultTTL(t *testing.T) {
	signed, err := tokenService.Issue("newuser", 0)
	require.NoError(t, err)

	claims, err := tokenService.Validate(signed)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, time.Minute)
}

func Test_Validate_ExpiredToken(t *testing.T) {
	// Issue treats a non-positive ttl as "use the default", so an expired
	// token has to be signed directly.
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "newuser",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		Issuer:    "aureus-test",
	})
	signed, err := expired.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = tokenService.Validate(signed)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_Validate_Malformed(t *testing.T) {
	_, err := tokenService.Validate("not-a-token")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_Validate_TamperedToken(t *testing.T) {
	signed, err := tokenService.Issue("newuser", time.Hour)
	require.NoError(t, err)

	// Flip one byte of the payload segment; the signature must stop verifying.
	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = tokenService.Validate(tampered)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func Test_Validate_WrongKey(t *testing.T) {
	other := NewService("different-key", "aureus-test", 30*time.Minute)
	signed, err := other.Issue("newuser", time.Hour)
	require.NoError(t, err)

	_, err = tokenService.Validate(signed)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_Validate_MissingSubject(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := unsigned.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = tokenService.Validate(signed)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_Validate_RejectsNonHMAC(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "newuser",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tokenService.Validate(signed)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}
