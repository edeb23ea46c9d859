package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ahorro/pkg/domain"
	dErrors "ahorro/pkg/domain-errors"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer", "test-audience")

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken("alice", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken("alice", -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token has expired")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("other-key", "test-issuer", "test-audience")
	token, err := other.GenerateAccessToken("mallory", time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	other := NewJWTService("test-signing-key", "test-issuer", "someone-else")
	token, err := other.GenerateAccessToken("alice", time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_PrincipalValidator(t *testing.T) {
	v := NewPrincipalValidator(jwtService)

	token, err := jwtService.GenerateAccessToken("bob", time.Hour)
	require.NoError(t, err)
	p, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.Principal("bob"), p)

	blank, err := jwtService.GenerateAccessToken("", time.Hour)
	require.NoError(t, err)
	_, err = v.ValidateToken(blank)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	pool, err := jwtService.GenerateAccessToken("pool:0123abcd", time.Hour)
	require.NoError(t, err)
	_, err = v.ValidateToken(pool)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
