package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("UPLOAD_MAX_FILES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, 20, cfg.Upload.MaxFiles)
	assert.Equal(t, int64(100*1024*1024), cfg.Upload.MaxFileSize())
	assert.Equal(t, "evidence_files", cfg.Upload.EvidenceField)
	assert.Contains(t, cfg.Upload.AllowedTypes, "application/pdf")
	assert.Equal(t, 5*time.Minute, cfg.Redis.PartnerCacheTTL)
	assert.False(t, cfg.Bootstrap.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("UPLOAD_MAX_FILE_SIZE_MB", "10")
	t.Setenv("UPLOAD_ALLOWED_PREFIXES", "image/, video/ ,")
	t.Setenv("RATE_LIMIT_ANONYMOUS_PER_MINUTE", "1.5")
	t.Setenv("BOOTSTRAP_ADMIN", "true")
	t.Setenv("BOOTSTRAP_ADMIN_USERNAME", "root")
	t.Setenv("LOG_DEVELOPMENT", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.App.Addr())
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSize())
	assert.Equal(t, []string{"image/", "video/"}, cfg.Upload.AllowedPrefixes)
	assert.Equal(t, 1.5, cfg.RateLimit.AnonymousPerMinute)
	assert.True(t, cfg.Bootstrap.Enabled)
	assert.Equal(t, "root", cfg.Bootstrap.Username)
	assert.False(t, cfg.Logger.Development)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}
