// Package config loads the service configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/akinalp/safespace/pkg/filter"
)

// Config carries every tunable of the process, grouped by concern.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Upload     UploadConfig
	Email      EmailConfig
	Redis      RedisConfig
	Moderation ModerationConfig
	Log        LogConfig
	CORS       CORSConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string
	Port int
}

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// DatabaseConfig selects and configures the persistent store.
type DatabaseConfig struct {
	Driver        string // sqlite | mongo
	Path          string // SQLite file
	MongoURI      string
	MongoDatabase string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry int // minutes
}

// Blob storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// UploadConfig configures avatar uploads.
type UploadConfig struct {
	Dir     string
	MaxSize int64 // bytes
	Backend string
	S3      S3Config
}

// S3Config is used when Upload.Backend is "s3". Endpoint and the static
// credentials are optional; without them the default AWS chain applies.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string // base URL objects are served from
}

// EmailConfig configures verification mail. Without an API key codes are
// only logged.
type EmailConfig struct {
	ResendAPIKey string
	From         string
}

// RedisConfig is optional. When URL is empty the login rate limiter keeps
// its counters in memory.
type RedisConfig struct {
	URL string
}

// ModerationConfig holds the content filter and ban settings.
type ModerationConfig struct {
	RealtimeFilterMode filter.Mode
	RESTFilterMode     filter.Mode
	HistoryLimit       int
	DefaultChannel     string
	BanSweepInterval   time.Duration // 0 disables the sweeper
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// CORSConfig lists allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load builds a Config from environment variables. Malformed values are
// reported instead of silently replaced by defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "5000"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	accessExpiry, err := strconv.Atoi(getEnv("JWT_ACCESS_EXPIRY_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRY_MINUTES: %w", err)
	}

	maxSize, err := strconv.ParseInt(getEnv("UPLOAD_MAX_SIZE", "5242880"), 10, 64) // 5MB
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_SIZE: %w", err)
	}

	historyLimit, err := strconv.Atoi(getEnv("HISTORY_LIMIT", "50"))
	if err != nil || historyLimit <= 0 {
		return nil, fmt.Errorf("invalid HISTORY_LIMIT: must be a positive integer")
	}

	sweep, err := time.ParseDuration(getEnv("BAN_SWEEP_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BAN_SWEEP_INTERVAL: %w", err)
	}

	realtimeMode, err := filter.ParseMode(getEnv("FILTER_REALTIME_MODE", string(filter.ModeWholeWord)))
	if err != nil {
		return nil, fmt.Errorf("invalid FILTER_REALTIME_MODE: %w", err)
	}

	restMode, err := filter.ParseMode(getEnv("FILTER_REST_MODE", string(filter.ModeSubstring)))
	if err != nil {
		return nil, fmt.Errorf("invalid FILTER_REST_MODE: %w", err)
	}

	driver := strings.ToLower(getEnv("DATABASE_DRIVER", DriverSQLite))
	if driver != DriverSQLite && driver != DriverMongo {
		return nil, fmt.Errorf("invalid DATABASE_DRIVER %q: want %q or %q", driver, DriverSQLite, DriverMongo)
	}

	backend := strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal))
	if backend != StorageLocal && backend != StorageS3 {
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q: want %q or %q", backend, StorageLocal, StorageS3)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			Driver:        driver,
			Path:          getEnv("DATABASE_PATH", "./data/safespace.db"),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DATABASE", "safespace"),
		},
		JWT: JWTConfig{
			Secret:            jwtSecret,
			AccessTokenExpiry: accessExpiry,
		},
		Upload: UploadConfig{
			Dir:     getEnv("UPLOAD_DIR", "./data/uploads"),
			MaxSize: maxSize,
			Backend: backend,
			S3: S3Config{
				Bucket:    getEnv("S3_BUCKET", ""),
				Region:    getEnv("S3_REGION", "us-east-1"),
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
				PublicURL: getEnv("S3_PUBLIC_URL", ""),
			},
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "SafeSpace <noreply@safespace.local>"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Moderation: ModerationConfig{
			RealtimeFilterMode: realtimeMode,
			RESTFilterMode:     restMode,
			HistoryLimit:       historyLimit,
			DefaultChannel:     getEnv("DEFAULT_CHANNEL", "General"),
			BanSweepInterval:   sweep,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
	}

	if cfg.Upload.Backend == StorageS3 && cfg.Upload.S3.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
	}

	return cfg, nil
}

// Addr returns the listen address, e.g. "0.0.0.0:5000".
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
