package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("QUALER_TOKEN", "secret")
	t.Setenv("QUALER_TIMEOUT_SEC", "5")
	t.Setenv("QUALER_RATE_LIMIT_RPS", "2.5")
	t.Setenv("MCP_TRANSPORT", "http")
	t.Setenv("MCP_HTTP_STATELESS", "false")

	cfg := Load()

	assert.Equal(t, "secret", cfg.Upstream.Token)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 2.5, cfg.Upstream.RateLimitRPS)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.False(t, cfg.Server.Stateless)
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"QUALER_BASE_URL", "QUALER_TOKEN", "QUALER_TIMEOUT_SEC", "MCP_TRANSPORT", "PORT", "QUALER_BREAKER_FAILURES", "MCP_HTTP_STATELESS"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, DefaultBaseURL, cfg.Upstream.BaseURL)
	assert.Empty(t, cfg.Upstream.Token)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 5, cfg.Upstream.BreakerFailures)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.Stateless)
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

func TestGetEnvFloat(t *testing.T) {
	key := "TEST_FLOAT_VAR"

	os.Setenv(key, "0.5")
	assert.Equal(t, 0.5, getEnvFloat(key, 0))

	os.Setenv(key, "nope")
	assert.Equal(t, 1.0, getEnvFloat(key, 1))

	os.Unsetenv(key)
	assert.Equal(t, 1.0, getEnvFloat(key, 1))
}
