package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.CacheBackend)
	assert.Equal(t, 10*time.Second, cfg.UserAPITimeout)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("USER_API_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.UserAPITimeout)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")
	_, err := Load()
	assert.ErrorContains(t, err, "CACHE_BACKEND")
}

func TestValidate_RequiresBackendSettings(t *testing.T) {
	cfg := Config{CacheBackend: "postgres", CredentialBackend: "cache"}
	assert.ErrorContains(t, cfg.Validate(), "POSTGRES_DSN")

	cfg = Config{CacheBackend: "sqlite", CredentialBackend: "secretmanager"}
	assert.ErrorContains(t, cfg.Validate(), "GCP_PROJECT_ID")
}
