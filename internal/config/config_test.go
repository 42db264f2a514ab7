package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "platform-desk", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.False(t, cfg.Azure.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("AZURE_DEVOPS_ORG", "contoso")
	t.Setenv("AZURE_DEVOPS_PROJECT", "desk")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.App.Addr())
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Azure.Enabled())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}
