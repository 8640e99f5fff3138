package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ZeroFreeTierIsKept(t *testing.T) {
	t.Setenv("QUOTA_FREE_GENERATIONS", "0")
	t.Setenv("QUOTA_FREE_EXPORTS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Quota.FreeGenerations)
	assert.Equal(t, 0, cfg.Quota.FreeExports)
}

func TestLoad_FreeTierDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Quota.FreeGenerations)
	assert.Equal(t, 3, cfg.Quota.FreeExports)
	assert.False(t, cfg.Server.TrustProxy)
}

func TestLoad_TrustProxy(t *testing.T) {
	t.Setenv("SERVER_TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Server.TrustProxy)
}

func TestProvidersConfig_RequestTimeout(t *testing.T) {
	assert.Equal(t, 65*time.Second, ProvidersConfig{Timeout: 30 * time.Second}.RequestTimeout())
}
