package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	t.Run("round trip", func(t *testing.T) {
		token, expiresAt, err := svc.GenerateAccessToken("user-1", "emp-1", user.RoleManager)
		require.NoError(t, err)
		assert.Greater(t, expiresAt, time.Now().Unix())

		decoded, err := svc.JWTAuth().Decode(token)
		require.NoError(t, err)
		claims, err := decoded.AsMap(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "emp-1", claims["employee_id"])
		assert.Equal(t, "manager", claims["role"])
		assert.Equal(t, TokenTypeAccess, claims["type"])
	})

	t.Run("requires employee", func(t *testing.T) {
		_, _, err := svc.GenerateAccessToken("user-1", "", user.RoleEmployee)
		assert.Error(t, err)
	})

	t.Run("foreign key rejected", func(t *testing.T) {
		token, _, err := NewJWTService("other-secret", time.Hour).GenerateAccessToken("u", "emp-1", user.RoleEmployee)
		require.NoError(t, err)
		_, err = svc.JWTAuth().Decode(token)
		assert.Error(t, err)
	})
}
