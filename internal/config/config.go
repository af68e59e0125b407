package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the subway-path services
type Config struct {
	// HTTP
	Port           string
	AllowedOrigins []string
	StaticDir      string

	// Storage: Postgres when DatabaseURL is set, SQLite otherwise
	SQLitePath  string
	DatabaseURL string

	// Logging
	LogLevel  string
	LogFormat string

	// Per-line write lock
	LockBackend string
	RedisAddr   string
	LockTTL     time.Duration
	LockTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		StaticDir:      getEnv("STATIC_DIR", ""),

		SQLitePath:  getEnv("SQLITE_DATABASE", "../../data/subway.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		LockBackend: getEnv("LOCK_BACKEND", "memory"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		LockTTL:     time.Duration(getEnvInt("LOCK_TTL_SECONDS", 10)) * time.Second,
		LockTimeout: time.Duration(getEnvInt("LOCK_TIMEOUT_SECONDS", 5)) * time.Second,
	}
}

// UsePostgres reports whether a Postgres URL was configured
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
