// Package config loads server configuration from environment variables.
//
// Every knob has a development-friendly default except the secrets: a JWT
// secret is always required, and at least one of ADMIN_PASSWORD /
// ADMIN_PASSWORD_HASH must be set so the fallback admin login works on a
// fresh database.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port   int
	DBPath string

	JWTSecret     string
	JWTExpiration time.Duration

	// Fallback admin identity, used when no matching user row exists.
	AdminEmail        string
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string

	// Object store. The local backend writes files under StoragePath and
	// serves them at {StorageBaseURL}/{StorageBucket}/{key}.
	StoragePath    string
	StorageBucket  string
	StorageBaseURL string

	LogLevel string
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              8080,
		DBPath:            getEnv("DB_PATH", "data/recuerdos.db"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiration:     12 * time.Hour,
		AdminEmail:        getEnv("ADMIN_EMAIL", "amor@example.com"),
		AdminUsername:     getEnv("ADMIN_USERNAME", "amor"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		StoragePath:       getEnv("STORAGE_PATH", "data/objects"),
		StorageBucket:     getEnv("STORAGE_BUCKET", "recuerdos-public"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", "http://localhost:8080/storage"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if expStr := os.Getenv("JWT_EXPIRATION"); expStr != "" {
		exp, err := time.ParseDuration(expStr)
		if err != nil {
			return nil, fmt.Errorf("config: invalid JWT_EXPIRATION %q: %w", expStr, err)
		}
		cfg.JWTExpiration = exp
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		return errors.New("config: provide ADMIN_PASSWORD or ADMIN_PASSWORD_HASH")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
