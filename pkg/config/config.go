package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Upload        UploadConfig
	Analysis      AnalysisConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	RateLimitPerSecond int
	RateLimitBurst     int
	// Clients idle for RateLimitIdleAfter are dropped on RateLimitSweepSchedule.
	RateLimitIdleAfter     time.Duration
	RateLimitSweepSchedule string
	AllowedOrigins         []string
}

// UploadConfig controls how uploaded exports are accepted and stored.
type UploadConfig struct {
	MaxBytes      int64
	TempDir       string
	StaleAfter    time.Duration
	SweepSchedule string
}

type AnalysisConfig struct {
	// MinimumQuality is the lowest data quality label accepted for analysis.
	MinimumQuality string
	Currency       string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPath    string
	LogLevel       string
	LogFormat      string
}

// DefaultMaxUploadBytes is the 10MB upload ceiling.
const DefaultMaxUploadBytes = 10 * 1024 * 1024

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:                   getEnv("SERVER_HOST", "localhost"),
			Port:                   getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:            getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:           getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:        getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			RateLimitPerSecond:     getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:         getEnvAsInt("SERVER_RATE_LIMIT_BURST", 40),
			RateLimitIdleAfter:     getEnvAsDuration("SERVER_RATE_LIMIT_IDLE_AFTER", 10*time.Minute),
			RateLimitSweepSchedule: getEnv("SERVER_RATE_LIMIT_SWEEP_SCHEDULE", "*/5 * * * *"),
			AllowedOrigins:         getEnvAsSlice("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Upload: UploadConfig{
			MaxBytes:      int64(getEnvAsInt("UPLOAD_MAX_BYTES", DefaultMaxUploadBytes)),
			TempDir:       getEnv("UPLOAD_TEMP_DIR", os.TempDir()),
			StaleAfter:    getEnvAsDuration("UPLOAD_STALE_AFTER", time.Hour),
			SweepSchedule: getEnv("UPLOAD_SWEEP_SCHEDULE", "*/15 * * * *"),
		},
		Analysis: AnalysisConfig{
			MinimumQuality: getEnv("ANALYSIS_MINIMUM_QUALITY", "fair"),
			Currency:       getEnv("ANALYSIS_CURRENCY", "USD"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPath:    getEnv("METRICS_PATH", "/metrics"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that would make the service unusable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("SERVER_PORT must be positive")
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Upload.TempDir == "" {
		return errors.New("UPLOAD_TEMP_DIR is required")
	}
	switch c.Analysis.MinimumQuality {
	case "excellent", "good", "fair", "poor":
	default:
		return errors.New("ANALYSIS_MINIMUM_QUALITY must be one of excellent, good, fair, poor")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
