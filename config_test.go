package auth_test

import (
	"testing"

	auth "github.com/amoryn/go-auth-core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := auth.NewConfig("key")

	require.NoError(t, cfg.Validate())
	assert.Equal(t, auth.DefaultAccessTokenExpiration, cfg.GetAccessTokenExpiration())
	assert.Equal(t, auth.DefaultRefreshTokenExpiration, cfg.GetRefreshTokenExpiration())
	assert.Equal(t, auth.DefaultMaxSessions, cfg.GetMaxSessions())
	assert.Equal(t, auth.DefaultElevationTokenExpiration, cfg.GetElevationTokenExpiration())
	assert.Equal(t, auth.DefaultSigningMethod, cfg.GetSigningMethod())
}

func TestConfigValidate(t *testing.T) {
	t.Run("requires signing key", func(t *testing.T) {
		cfg := &auth.SimpleConfig{MaxSessions: 5}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unsupported signing method", func(t *testing.T) {
		cfg := auth.NewConfig("key")
		cfg.SigningMethod = "none"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects zero session limit", func(t *testing.T) {
		cfg := auth.NewConfig("key")
		cfg.MaxSessions = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestConfigZeroValueFallbacks(t *testing.T) {
	cfg := &auth.SimpleConfig{SigningKey: "key"}

	assert.Equal(t, auth.DefaultAccessTokenExpiration, cfg.GetAccessTokenExpiration())
	assert.Equal(t, auth.DefaultMaxSessions, cfg.GetMaxSessions())
	assert.Equal(t, "/auth/confirm", cfg.GetConfirmationURL())
	assert.Equal(t, "/auth/password-reset/confirm", cfg.GetPasswordResetURL())
	assert.Equal(t, "/admin/promote", cfg.GetAdminPromotionURL())
}
