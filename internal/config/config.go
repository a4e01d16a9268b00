package config

import (
	"os"
	"strconv"
	"time"
)

// DefaultBaseURL is the production Qualer host used when QUALER_BASE_URL is unset.
const DefaultBaseURL = "https://jgiquality.qualer.com"

// UpstreamConfig holds the settings for the Qualer API client.
type UpstreamConfig struct {
	BaseURL string
	Token   string
	// Timeout is the deadline applied to every outbound call.
	Timeout time.Duration

	// RateLimitRPS caps outbound requests per second. Zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// BreakerFailures is the number of consecutive transport/5xx failures that
	// opens the circuit. Zero disables the breaker.
	BreakerFailures int
	BreakerOpen     time.Duration
}

// ServerConfig holds settings for the tool-protocol surface.
type ServerConfig struct {
	// Transport is "stdio" (default) or "http".
	Transport string
	Port      string
	// Stateless makes the streamable HTTP handler skip session tracking.
	// On by default: the handler sits behind a buffering adaptor, so the
	// session-only GET stream cannot be served.
	Stateless bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Upstream UpstreamConfig
	Server   ServerConfig
	LogLevel string
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Missing credentials are not an error here; the upstream client rejects them when it is built.
func Load() *AppConfig {
	return &AppConfig{
		Upstream: UpstreamConfig{
			BaseURL:         getEnv("QUALER_BASE_URL", DefaultBaseURL),
			Token:           getEnv("QUALER_TOKEN", ""),
			Timeout:         time.Duration(getEnvInt("QUALER_TIMEOUT_SEC", 30)) * time.Second,
			RateLimitRPS:    getEnvFloat("QUALER_RATE_LIMIT_RPS", 0),
			RateLimitBurst:  getEnvInt("QUALER_RATE_LIMIT_BURST", 1),
			BreakerFailures: getEnvInt("QUALER_BREAKER_FAILURES", 5),
			BreakerOpen:     time.Duration(getEnvInt("QUALER_BREAKER_OPEN_SEC", 30)) * time.Second,
		},
		Server: ServerConfig{
			Transport: getEnv("MCP_TRANSPORT", "stdio"),
			Port:      getEnv("PORT", "8080"),
			Stateless: getEnvBool("MCP_HTTP_STATELESS", true),
		},
		LogLevel: getEnv("LOG_LEVEL", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
