package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Server Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Authentication Configuration
	Auth AuthConfig

	// Object Storage Configuration
	Storage StorageConfig

	// Background worker Configuration
	Worker WorkerConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	PublicAPIURL string   // Base URL used in presigned disk-object links
	PublicUIURL  string   // Web UI address, used in emails
	CORSOrigins  []string // Allowed browser origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port), empty disables background tasks
}

// AuthConfig holds token and account settings
type AuthConfig struct {
	JWTSecret       string // Empty means generate once and persist in the database
	TokenTTL        time.Duration
	AutoVerifyUsers bool // Skip email verification at signup
}

// StorageConfig selects and configures the photo object store
type StorageConfig struct {
	Backend          string // disk or s3
	Dir              string
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	AccessKeyID      string
	SecretAccessKey  string
	FinalizeRequired bool
	PresignTTL       time.Duration
}

// WorkerConfig holds background task settings
type WorkerConfig struct {
	SweepSchedule string        // Cron expression for the stale upload sweep
	StaleAfter    time.Duration // Age after which a pending upload is reconciled
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	tokenTTL, err := durationEnv("TOKEN_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	presignTTL, err := durationEnv("PRESIGN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	autoVerify, err := boolEnv("AUTO_VERIFY_USERS", false)
	if err != nil {
		return nil, err
	}
	finalizeRequired, err := boolEnv("FINALIZE_REQUIRED", true)
	if err != nil {
		return nil, err
	}

	staleAfter, err := durationEnv("STALE_UPLOAD_AGE", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	port := envOr("PORT", "8000")

	cfg := &Config{
		Server: ServerConfig{
			Port:         port,
			PublicAPIURL: strings.TrimRight(envOr("PUBLIC_API_URL", "http://localhost:"+port), "/"),
			PublicUIURL:  strings.TrimRight(envOr("PUBLIC_UI_URL", "http://localhost:5173"), "/"),
			CORSOrigins:  splitList(envOr("CORS_ORIGINS", "http://localhost:5173")),
		},
		Database: DatabaseConfig{
			URL: envOr("DATABASE_URL", "nuagevault.sqlite"),
		},
		Redis: RedisConfig{
			Address: os.Getenv("REDIS_ADDRESS"),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			TokenTTL:        tokenTTL,
			AutoVerifyUsers: autoVerify,
		},
		Storage: StorageConfig{
			Backend:          strings.ToLower(envOr("STORAGE_BACKEND", "disk")),
			Dir:              envOr("STORAGE_DIR", "data/objects"),
			S3Bucket:         os.Getenv("S3_BUCKET"),
			S3Region:         envOr("S3_REGION", "us-east-1"),
			S3Endpoint:       os.Getenv("S3_ENDPOINT"),
			AccessKeyID:      os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey:  os.Getenv("AWS_SECRET_ACCESS_KEY"),
			FinalizeRequired: finalizeRequired,
			PresignTTL:       presignTTL,
		},
		Worker: WorkerConfig{
			SweepSchedule: envOr("SWEEP_SCHEDULE", "*/15 * * * *"),
			StaleAfter:    staleAfter,
		},
		Logging: LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "disk":
		if c.Storage.Dir == "" {
			return fmt.Errorf("STORAGE_DIR is required for the disk storage backend")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (expected disk or s3)", c.Storage.Backend)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.Storage.PresignTTL <= 0 {
		return fmt.Errorf("PRESIGN_TTL must be positive")
	}
	if c.Worker.StaleAfter <= c.Storage.PresignTTL {
		return fmt.Errorf("STALE_UPLOAD_AGE must be longer than PRESIGN_TTL")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
