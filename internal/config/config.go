package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AppEnv            string
	LogLevel          string
	ServerPort        int
	DatabasePath      string
	JWTSecret         string
	UploadDir         string // Directory backing the public /images path
	MaxUploadMB       int
	OperationTimeout  time.Duration
	RedisAddr         string // Empty disables the post cache
	CacheTTL          time.Duration
	ReconcileSchedule string // cron spec for the orphaned image sweep
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, err
	}
	maxUpload, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "10"))
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(getEnv("OPERATION_TIMEOUT", "5s"))
	if err != nil {
		return nil, err
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		return nil, err
	}

	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	return &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ServerPort:        port,
		DatabasePath:      getEnv("DATABASE_PATH", "./feed.db"),
		JWTSecret:         secret,
		UploadDir:         getEnv("UPLOAD_DIR", "./images"),
		MaxUploadMB:       maxUpload,
		OperationTimeout:  timeout,
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		CacheTTL:          cacheTTL,
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@every 1h"),
	}, nil
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
