// Package config reads process configuration from the environment (and .env).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StoreDriver string

const (
	DriverPostgres StoreDriver = "postgres"
	DriverMySQL    StoreDriver = "mysql"
	DriverMemory   StoreDriver = "memory"
)

type Config struct {
	ServerPort     string
	AllowedOrigins string
	JWTSecret      string

	StoreDriver   StoreDriver
	DatabaseURL   string
	MySQLDSN      string
	RedisAddr     string
	RedisPassword string

	OpenAIKey   string
	OpenAIModel string

	LogLevel  string
	LogFormat string

	ApprovalMaxAttempts int
	ApprovalBaseBackoff time.Duration
	ApprovalMaxBackoff  time.Duration

	ShutdownTimeout time.Duration
}

// Getenv returns the value of key, or fallback when it is unset or empty.
func Getenv(key, fallback string) string {
	value := os.Getenv(key)
	if len(value) == 0 {
		return fallback
	}
	return value
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (*Config, error) {
	cfg := &Config{
		ServerPort:     Getenv("SERVER_PORT", "8080"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		StoreDriver:    StoreDriver(strings.ToLower(Getenv("STORE_DRIVER", string(DriverPostgres)))),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MySQLDSN:       os.Getenv("MYSQL_DSN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    Getenv("OPENAI_MODEL", "gpt-4o-mini"),
		LogLevel:       Getenv("LOG_LEVEL", "info"),
		LogFormat:      Getenv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.ApprovalMaxAttempts, err = intEnv("APPROVAL_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.ApprovalMaxAttempts < 1 {
		return nil, fmt.Errorf("APPROVAL_MAX_ATTEMPTS must be >= 1, got %d", cfg.ApprovalMaxAttempts)
	}
	if cfg.ApprovalBaseBackoff, err = durationEnv("APPROVAL_BASE_BACKOFF", 10*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.ApprovalMaxBackoff, err = durationEnv("APPROVAL_MAX_BACKOFF", 250*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=postgres")
		}
	case DriverMySQL:
		if cfg.MySQLDSN == "" {
			return nil, fmt.Errorf("MYSQL_DSN is required for STORE_DRIVER=mysql")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want postgres, mysql or memory)", cfg.StoreDriver)
	}
	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return d, nil
}
