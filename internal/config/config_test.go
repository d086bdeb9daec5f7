package config

import (
	"os"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("PRESIGN_EXPIRY_SEC", "60")
	t.Setenv("REPOSITORY_DRIVER", DriverGorm)
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, time.Minute, cfg.MinIO.PresignExpiry())
	assert.Equal(t, DriverGorm, cfg.RepositoryDriver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REPOSITORY_DRIVER", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("APP_TIMEZONE", "")

	cfg := Load()

	assert.Equal(t, DriverSQL, cfg.RepositoryDriver)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "UTC", cfg.Log.Timezone)
}

func TestLoad_Tracing(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")

	cfg := Load()

	assert.True(t, cfg.Tracing.Disabled)
	assert.Equal(t, "grpc", cfg.Tracing.Protocol)
	assert.Equal(t, "http://collector:4317", cfg.Tracing.Endpoint)

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://traces:4318")
	assert.Equal(t, "http://traces:4318", Load().Tracing.Endpoint)
}

func TestLogConfig_Location(t *testing.T) {
	assert.Equal(t, time.UTC, LogConfig{Timezone: "UTC"}.Location())
	assert.Equal(t, time.UTC, LogConfig{Timezone: "Not/AZone"}.Location())

	loc := LogConfig{Timezone: "Asia/Jakarta"}.Location()
	assert.Equal(t, "Asia/Jakarta", loc.String())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}
