package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-inventory-api-server/config"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(config.JWTConfig{Secret: "test-secret", Expiration: "1h"})
	require.NoError(t, err)
	return svc
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.GenerateToken("provider@example.com", "Pat Provider", "provider")
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "provider@example.com", claims.Email)
	assert.Equal(t, "Pat Provider", claims.Name)
	assert.Equal(t, "provider", claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService(t)
	other, err := NewService(config.JWTConfig{Secret: "other-secret"})
	require.NoError(t, err)

	token, err := svc.GenerateToken("provider@example.com", "Pat", "provider")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(config.JWTConfig{})
	assert.Error(t, err, "empty secret must be rejected")

	_, err = NewService(config.JWTConfig{Secret: "s", Expiration: "soon"})
	assert.Error(t, err, "unparseable expiration must be rejected")
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
}
