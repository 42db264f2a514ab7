package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/platform-desk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager("test-secret", 60)

	token, exp, err := tm.GenerateToken("user-1", domain.RoleOperator)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleOperator, claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, _, err := NewTokenManager("secret-a", 60).GenerateToken("user-1", domain.RoleUser)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 60).ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager("secret", 60).ParseToken("not-a-token")
	require.Error(t, err)
}
