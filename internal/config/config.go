package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
	Bootstrap BootstrapConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	PartnerCacheTTL time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// StorageConfig selects and configures the evidence blob store.
type StorageConfig struct {
	Driver    string
	LocalDir  string
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// UploadConfig bounds evidence uploads.
type UploadConfig struct {
	MaxFiles        int
	MaxFileSizeMB   int64
	MaxBodySizeMB   int
	EvidenceField   string
	AllowedPrefixes []string
	AllowedTypes    []string
}

// RateLimitConfig throttles anonymous submissions per client IP.
type RateLimitConfig struct {
	AnonymousPerMinute float64
	AnonymousBurst     int
}

// BootstrapConfig creates an administrator at startup when enabled.
type BootstrapConfig struct {
	Enabled  bool
	Username string
	Email    string
	Password string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "rightsplace"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 120),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			PartnerCacheTTL: time.Duration(getEnvAsInt("REDIS_PARTNER_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", "local"),
			LocalDir:  getEnv("STORAGE_LOCAL_DIR", "media"),
			Bucket:    os.Getenv("STORAGE_S3_BUCKET"),
			Endpoint:  os.Getenv("STORAGE_S3_ENDPOINT"),
			Region:    getEnv("STORAGE_S3_REGION", "us-east-1"),
			AccessKey: os.Getenv("STORAGE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_S3_SECRET_KEY"),
		},
		Upload: UploadConfig{
			MaxFiles:        getEnvAsInt("UPLOAD_MAX_FILES", 20),
			MaxFileSizeMB:   int64(getEnvAsInt("UPLOAD_MAX_FILE_SIZE_MB", 100)),
			MaxBodySizeMB:   getEnvAsInt("UPLOAD_MAX_BODY_SIZE_MB", 2200),
			EvidenceField:   getEnv("UPLOAD_EVIDENCE_FIELD", "evidence_files"),
			AllowedPrefixes: getEnvAsList("UPLOAD_ALLOWED_PREFIXES", []string{"image/", "video/", "audio/"}),
			AllowedTypes: getEnvAsList("UPLOAD_ALLOWED_TYPES", []string{
				"application/pdf",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				"text/plain",
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				"application/vnd.ms-excel",
			}),
		},
		RateLimit: RateLimitConfig{
			AnonymousPerMinute: getEnvAsFloat("RATE_LIMIT_ANONYMOUS_PER_MINUTE", 6),
			AnonymousBurst:     getEnvAsInt("RATE_LIMIT_ANONYMOUS_BURST", 3),
		},
		Bootstrap: BootstrapConfig{
			Enabled:  getEnvAsBool("BOOTSTRAP_ADMIN", false),
			Username: os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
			Email:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			Password: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// MaxFileSize returns the per-file ceiling in bytes.
func (u UploadConfig) MaxFileSize() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// MaxBodySize returns the multipart body ceiling in bytes.
func (u UploadConfig) MaxBodySize() int {
	return u.MaxBodySizeMB * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
