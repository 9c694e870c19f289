package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/rundown-app/rundown/internal/assert"
)

// Config holds all configuration for the server
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Admin    AdminConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	ListenAddr  string   `validate:"required"`
	CORSOrigins []string `validate:"dive,url"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string `validate:"required"`
}

// SessionConfig holds session token configuration
type SessionConfig struct {
	JWTSecret string        `validate:"required,min=32"`
	TTL       time.Duration `validate:"gt=0"`
	// SecureCookie marks session cookies as HTTPS-only
	SecureCookie bool
}

// AdminConfig seeds an initial user when Email is set
type AdminConfig struct {
	Email    string `validate:"omitempty,email"`
	Name     string
	Password string `validate:"required_with=Email"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string `validate:"oneof=json console"` // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	ttl := time.Hour
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", raw, err)
		}
		ttl = parsed
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Sessions will not survive a restart without an explicit secret
		generated, err := generateSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
	}

	cfg := &Config{
		Server: ServerConfig{
			ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
			CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),
		},
		Database: DatabaseConfig{
			URL: getenv("DATABASE_URL", "rundown.sqlite"),
		},
		Session: SessionConfig{
			JWTSecret:    secret,
			TTL:          ttl,
			SecureCookie: os.Getenv("SECURE_COOKIES") == "true",
		},
		Admin: AdminConfig{
			Email:    os.Getenv("ADMIN_EMAIL"),
			Name:     getenv("ADMIN_NAME", "Admin"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// generateSecret returns 64 hex characters (32 bytes of randomness)
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	secret := hex.EncodeToString(b)
	assert.Length(secret, 64)
	return secret, nil
}
