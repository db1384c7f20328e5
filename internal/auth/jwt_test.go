package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplereader/simplereader/internal/auth"
)

func newJWT(key, issuer, audience string) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: key,
		Issuer:     issuer,
		Audience:   audience,
	})
}

func TestJWTService_GenerateAndValidateAccessToken(t *testing.T) {
	svc := newJWT("test-secret-key-for-testing-only", "simplereader", "simplereader-admin")

	token, expiresAt, err := svc.GenerateAccessToken("admin")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(auth.AccessTokenExpiry), expiresAt, time.Minute)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, "simplereader", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := newJWT("test-secret-key-for-testing-only", "simplereader", "simplereader-admin")

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_Mismatch(t *testing.T) {
	issuer := newJWT("key-one", "simplereader", "simplereader-admin")
	token, _, err := issuer.GenerateAccessToken("admin")
	require.NoError(t, err)

	tests := []struct {
		name     string
		verifier *auth.JWTService
	}{
		{"wrong signing key", newJWT("key-two", "simplereader", "simplereader-admin")},
		{"wrong issuer", newJWT("key-one", "someone-else", "simplereader-admin")},
		{"wrong audience", newJWT("key-one", "simplereader", "public-api")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.ValidateAccessToken(token)
			assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
		})
	}
}

func TestJWTService_Expired(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-key",
		Issuer:     "simplereader",
		Audience:   "simplereader-admin",
		Expiry:     -time.Minute,
	})

	token, _, err := svc.GenerateAccessToken("admin")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}
