// Package config handles application configuration from environment
// variables with support for .env files (development convenience).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Minimum and maximum allowed polling intervals for the AquaWiz cloud API.
const (
	MinUpdateInterval = 60 * time.Second
	MaxUpdateInterval = 3600 * time.Second

	// DefaultUpdateInterval is used when AQUAWIZ_UPDATE_INTERVAL is unset.
	DefaultUpdateInterval = 600 * time.Second
)

// Config holds all application configuration loaded from environment
// variables.
type Config struct {
	Server   ServerConfig
	AquaWiz  AquaWizConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Cache    CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        string // Port to listen on (default: "8080")
	Environment string // "development" or "production"
}

// AquaWizConfig holds the cloud API credentials and polling settings.
type AquaWizConfig struct {
	Username       string        // AquaWiz account email (required)
	Password       string        // AquaWiz account password (required)
	DeviceID       string        // Device serial to monitor (required)
	UpdateInterval time.Duration // Poll interval, 60s to 3600s
	BaseURL        string        // Override API base URL (tests only, empty for production)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Address returns the Redis address in host:port format.
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// CORSConfig holds CORS settings for the HTTP API.
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// CacheConfig holds snapshot cache settings.
type CacheConfig struct {
	Enabled     bool          // Whether to mirror the latest snapshot into Redis
	SnapshotTTL time.Duration // How long a cached snapshot stays valid
}

// Load reads configuration from environment variables.
// Loads .env file if present (development convenience), then reads all
// configuration with sensible defaults. Missing required variables and
// out-of-range values surface through Validate.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error for production)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		AquaWiz: AquaWizConfig{
			Username:       getEnv("AQUAWIZ_USERNAME", ""),
			Password:       getEnv("AQUAWIZ_PASSWORD", ""),
			DeviceID:       getEnv("AQUAWIZ_DEVICE_ID", ""),
			UpdateInterval: getEnvAsDuration("AQUAWIZ_UPDATE_INTERVAL", DefaultUpdateInterval),
			BaseURL:        getEnv("AQUAWIZ_BASE_URL", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "aquawiz"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "aquawiz"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			MaxAge:         getEnvAsInt("CORS_MAX_AGE", 300),
		},
		Cache: CacheConfig{
			Enabled:     getEnvAsBool("CACHE_ENABLED", true),
			SnapshotTTL: getEnvAsDuration("CACHE_SNAPSHOT_TTL", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and within
// allowed ranges. Called automatically by Load.
func (c *Config) Validate() error {
	if c.AquaWiz.Username == "" {
		return fmt.Errorf("AQUAWIZ_USERNAME is required")
	}
	if c.AquaWiz.Password == "" {
		return fmt.Errorf("AQUAWIZ_PASSWORD is required")
	}
	if c.AquaWiz.DeviceID == "" {
		return fmt.Errorf("AQUAWIZ_DEVICE_ID is required")
	}
	if c.AquaWiz.UpdateInterval < MinUpdateInterval || c.AquaWiz.UpdateInterval > MaxUpdateInterval {
		return fmt.Errorf("AQUAWIZ_UPDATE_INTERVAL must be between %s and %s, got %s",
			MinUpdateInterval, MaxUpdateInterval, c.AquaWiz.UpdateInterval)
	}
	if c.Database.Password == "" {
		return fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	return nil
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// getEnv retrieves an environment variable with a fallback default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// Falls back to the default on missing or unparseable values.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid boolean value, using default")
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a duration.
// Accepts either a Go duration string ("10m") or a plain number of
// seconds ("600").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid duration value, using default")
		return defaultValue
	}
	return value
}

// getEnvAsSlice retrieves an environment variable as a comma-separated
// list.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
