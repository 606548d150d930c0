package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	GeminiAPIKey       string
	GeminiModelID      string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	BookingURL         string
	FactsURL           string
	ReplyPacing        time.Duration
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
// A .env file is optional; real env vars win (e.g. in production).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:      getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		BookingURL:         getEnv("BOOKING_URL", defaultBookingURL),
		FactsURL:           getEnv("FACTS_URL", defaultFactsURL),
		ReplyPacing:        getEnvAsDuration("REPLY_PACING", 800*time.Millisecond),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

const (
	defaultBookingURL = "https://www.centaurportal.com/d4w/org-3404/extended_search?location=3930&sourceID=&randomNumber=428da415c42d72a6ac2653e76d73cd2349aed9079f5261eadaa055eedff383e8&shortVer=true"
	defaultFactsURL   = "https://teeth.org.au/factsheets"
)

// Validate checks that configuration required at startup is present.
// The assistant credential is load-bearing: without it the remote client
// cannot be constructed, so the process must refuse to start.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return errors.New("config: GEMINI_API_KEY is required")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
