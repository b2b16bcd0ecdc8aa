package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Logger         LoggerConfig
	Auth           AuthConfig
	Orders         OrdersConfig
	Redis          RedisConfig
	RateLimit      RateLimitConfig
	Serviceability ServiceabilityConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout int // seconds
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	AutoMigrate     bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// OrdersConfig holds order workflow settings.
type OrdersConfig struct {
	// Timezone is the IANA zone whose calendar day scopes order numbers.
	Timezone             string
	DefaultDeliveryDays  int
	MaxPlacementAttempts int
}

// RedisConfig holds the Redis connection used for idempotent order placement.
type RedisConfig struct {
	Enabled        bool
	URL            string
	IdempotencyTTL int // seconds
}

// RateLimitConfig holds per-client request rate limits.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// ServiceabilityConfig holds the deliverable pincode list settings.
type ServiceabilityConfig struct {
	Enabled  bool
	FilePath string
	S3       S3Config
}

// S3Config holds AWS S3 configuration for the pincode file.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "serviceability/")
}

// Load loads configuration from environment variables. Values from a .env
// file (ENV_FILE, default ".env") are applied first without overriding the
// process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT", 30),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "storefront"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Orders: OrdersConfig{
			Timezone:             getEnv("ORDER_TIMEZONE", "UTC"),
			DefaultDeliveryDays:  getEnvAsInt("ORDER_DEFAULT_DELIVERY_DAYS", 2),
			MaxPlacementAttempts: getEnvAsInt("ORDER_MAX_PLACEMENT_ATTEMPTS", 3),
		},
		Redis: RedisConfig{
			Enabled:        getEnvAsBool("REDIS_ENABLED", false),
			URL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
			IdempotencyTTL: getEnvAsInt("IDEMPOTENCY_TTL", 86400),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Serviceability: ServiceabilityConfig{
			Enabled:  getEnvAsBool("SERVICEABILITY_ENABLED", false),
			FilePath: getEnv("SERVICEABILITY_FILE", "data/serviceable_pincodes.gz"),
			S3: S3Config{
				Enabled: getEnvAsBool("S3_ENABLED", false),
				Bucket:  getEnv("S3_BUCKET", ""),
				Region:  getEnv("S3_REGION", "ap-south-1"),
				Prefix:  getEnv("S3_PREFIX", "serviceability/"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if _, err := c.Orders.Location(); err != nil {
		return fmt.Errorf("invalid order timezone: %s", c.Orders.Timezone)
	}

	if c.Orders.DefaultDeliveryDays < 1 {
		return fmt.Errorf("order default delivery days must be at least 1")
	}

	if c.Orders.MaxPlacementAttempts < 1 {
		return fmt.Errorf("order max placement attempts must be at least 1")
	}

	if c.Redis.Enabled {
		if c.Redis.URL == "" {
			return fmt.Errorf("redis URL is required when redis is enabled")
		}
		if c.Redis.IdempotencyTTL < 1 {
			return fmt.Errorf("idempotency TTL must be at least 1 second")
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate limit requests per second must be positive")
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("rate limit burst must be at least 1")
		}
	}

	if c.Serviceability.Enabled {
		if c.Serviceability.FilePath == "" {
			return fmt.Errorf("serviceability file is required when serviceability is enabled")
		}
		if c.Serviceability.S3.Enabled {
			if c.Serviceability.S3.Bucket == "" {
				return fmt.Errorf("S3 bucket is required when S3 is enabled")
			}
			if c.Serviceability.S3.Region == "" {
				return fmt.Errorf("S3 region is required when S3 is enabled")
			}
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location resolves the order-number timezone.
func (c *OrdersConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DefaultDeliveryWindow is the time added to the placement time when a
// request does not name an expected delivery date.
func (c *OrdersConfig) DefaultDeliveryWindow() time.Duration {
	return time.Duration(c.DefaultDeliveryDays) * 24 * time.Hour
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
