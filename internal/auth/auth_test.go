package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	tok, err := tokens.Issue(models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	claims, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestTokensRejects(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewTokens("other", time.Hour).Issue(models.User{ID: "u1"})
		require.NoError(t, err)
		_, err = tokens.Parse(tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := NewTokens("test-secret", -time.Minute).Issue(models.User{ID: "u1"})
		require.NoError(t, err)
		_, err = tokens.Parse(tok)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not.a.token")
		assert.Error(t, err)
	})

	t.Run("missing user id", func(t *testing.T) {
		tok, err := tokens.Issue(models.User{})
		require.NoError(t, err)
		_, err = tokens.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestPolicies(t *testing.T) {
	owner := Identity{UserID: "owner", Role: models.RoleUser}
	admin := Identity{UserID: "admin", Role: models.RoleAdmin}
	mod := Identity{UserID: "mod", Role: models.RoleModerator}

	assert.True(t, CanModify(owner, "owner"))
	assert.True(t, CanModify(admin, "owner"))
	assert.False(t, CanModify(mod, "owner"))

	assert.True(t, CanAccept(owner, "owner"))
	assert.False(t, CanAccept(admin, "owner"), "admin must not accept on the owner's behalf")
	assert.False(t, CanAccept(Identity{}, ""))
}
