package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_NAME", "")
	t.Setenv("JWT_ACCESS_EXPIRY", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg := Load()

	assert.Equal(t, "asphalt_aid", cfg.DBName)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "aid")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "roads")
	t.Setenv("JWT_REFRESH_EXPIRY", "48h")
	t.Setenv("JOB_WORKERS", "5")
	t.Setenv("REDIS_HOST", "cache")

	cfg := Load()

	assert.Equal(t, 48*time.Hour, cfg.JWTRefreshExpiry)
	assert.Equal(t, 5, cfg.JobWorkers)
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
	assert.Contains(t, cfg.DSN(), "host=db")
	assert.Contains(t, cfg.DSN(), "dbname=roads")
	assert.Equal(t, "postgres://aid:secret@db:5432/roads?sslmode=disable", cfg.MigrationURL())
}

func TestParseFallbacks(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 7, parseInt("seven", 7))
	assert.Equal(t, 3, parseInt("3", 7))
}

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{AppEnv: "prod"}).IsProduction())
	assert.True(t, (&Config{AppEnv: "production"}).IsProduction())
	assert.False(t, (&Config{AppEnv: "dev"}).IsProduction())
}
