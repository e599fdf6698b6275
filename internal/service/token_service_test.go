package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService("secret")
	claims := &models.JWTClaims{
		Scope: "TEACHER",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "teacher1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	for _, method := range []jwt.SigningMethod{jwt.SigningMethodHS256, jwt.SigningMethodHS512} {
		parsed, err := svc.ValidateToken(signToken(t, method, "secret", claims))
		require.NoError(t, err)
		assert.Equal(t, "teacher1", parsed.Actor())
		assert.Equal(t, "TEACHER", parsed.Scope)
	}
}

func TestTokenServiceRejectsBadTokens(t *testing.T) {
	svc := NewTokenService("secret")
	expired := &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "teacher1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}

	_, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, "secret", expired))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, "other", &models.JWTClaims{Username: "x"}))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = NewTokenService("").ValidateToken("anything")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
