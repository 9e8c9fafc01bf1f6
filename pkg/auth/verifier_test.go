package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(issuer string) models.JWTClaims {
	return models.JWTClaims{
		UserID: "admin-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	verifier := NewVerifier("secret", "sma-auth")

	claims, err := verifier.Verify(signToken(t, "secret", validClaims("sma-auth")))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestVerifierFallsBackToSubject(t *testing.T) {
	claims := validClaims("")
	claims.UserID = ""
	claims.Subject = "teacher-7"

	parsed, err := NewVerifier("secret", "").Verify(signToken(t, "secret", claims))
	require.NoError(t, err)
	assert.Equal(t, "teacher-7", parsed.UserID)
}

func TestVerifierRejectsBadTokens(t *testing.T) {
	verifier := NewVerifier("secret", "sma-auth")
	expired := validClaims("sma-auth")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	cases := map[string]string{
		"wrong secret": signToken(t, "other", validClaims("sma-auth")),
		"wrong issuer": signToken(t, "secret", validClaims("someone-else")),
		"expired":      signToken(t, "secret", expired),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(token)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
		})
	}
}
