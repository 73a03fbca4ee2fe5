package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, int64(5<<20), cfg.AvatarMaxBytes)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsMissingSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsSharedSecret(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "same")
	t.Setenv("JWT_REFRESH_SECRET", "same")
	_, err := LoadConfig()
	assert.EqualError(t, err, "access and refresh secrets must differ")
}

func TestLoadConfigRejectsShortRefreshTTL(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")
	t.Setenv("REFRESH_TOKEN_TTL", "10m")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestConfigConnectionSettingsShareRedis(t *testing.T) {
	cfg := &Config{PGDSN: "postgres://x", PGMaxConns: 4, RedisAddr: "redis:6379", RedisPassword: "pw", RedisDB: 2}

	assert.Equal(t, int32(4), cfg.Postgres().MaxConns)
	assert.Equal(t, "redis:6379", cfg.Redis().Addr)
	q := cfg.Queue()
	assert.Equal(t, cfg.Redis().Addr, q.Addr)
	assert.Equal(t, "pw", q.Password)
	assert.Equal(t, 2, q.DB)
}
