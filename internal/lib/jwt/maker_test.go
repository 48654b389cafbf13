package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret_key_1234567890"

func TestJWTMaker_GenerateAndParseToken(t *testing.T) {
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker(testSecret, tokenTTL)

	tests := []struct {
		name    string
		userUID string
		email   string
	}{
		{
			name:    "regular user",
			userUID: "6f1d3c1e-7d0b-4c55-9c1e-4d5e6f7a8b9c",
			email:   "alice@example.com",
		},
		{
			name:    "email with plus",
			userUID: "0a1b2c3d-0000-4000-8000-000000000001",
			email:   "bob+todo@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.userUID, tt.email)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, tt.userUID, claims.UserUID)
			assert.Equal(t, tt.userUID, claims.Subject)
			assert.Equal(t, tt.email, claims.Email)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	maker := NewJWTMaker(testSecret, 15*time.Minute)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: tokenFrom(t, NewJWTMaker(testSecret, -time.Hour))},
		{name: "wrong secret key", token: tokenFrom(t, NewJWTMaker("wrong_secret_key", time.Minute))},
		{name: "none algorithm", token: unsignedToken(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_MissingUserUID(t *testing.T) {
	maker := NewJWTMaker(testSecret, time.Minute)

	token, err := maker.GenerateToken("", "nobody@example.com")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func tokenFrom(t *testing.T, maker *MakerImpl) string {
	t.Helper()
	token, err := maker.GenerateToken("6f1d3c1e-7d0b-4c55-9c1e-4d5e6f7a8b9c", "alice@example.com")
	require.NoError(t, err)
	return token
}

func unsignedToken(t *testing.T) string {
	t.Helper()
	claims := CustomClaims{
		UserUID: "6f1d3c1e-7d0b-4c55-9c1e-4d5e6f7a8b9c",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return token
}
