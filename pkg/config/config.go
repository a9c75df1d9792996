package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Feed       FeedConfig
	AckReports AckReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig only carries the verification secret; tokens are issued by the
// identity provider, not by this service.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// FeedConfig tunes presentation thresholds and the per-viewer summary cache.
type FeedConfig struct {
	SummaryCacheTTL  time.Duration
	NewWindow        time.Duration
	ExpiringWindow   time.Duration
	DefaultPageSize  int
	MaxPageSize      int
	AttachmentTTL    time.Duration
	AttachmentSecret string
}

// AckReportsConfig governs asynchronous acknowledgement-report generation.
type AckReportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Feed = FeedConfig{
		SummaryCacheTTL:  parseDuration(v.GetString("FEED_SUMMARY_CACHE_TTL"), 2*time.Minute),
		NewWindow:        parseDuration(v.GetString("FEED_NEW_WINDOW"), 24*time.Hour),
		ExpiringWindow:   parseDuration(v.GetString("FEED_EXPIRING_WINDOW"), 48*time.Hour),
		DefaultPageSize:  v.GetInt("FEED_DEFAULT_PAGE_SIZE"),
		MaxPageSize:      v.GetInt("FEED_MAX_PAGE_SIZE"),
		AttachmentTTL:    parseDuration(v.GetString("ATTACHMENT_URL_TTL"), time.Hour),
		AttachmentSecret: v.GetString("ATTACHMENT_URL_SECRET"),
	}

	cfg.AckReports = AckReportsConfig{
		Enabled:           v.GetBool("ENABLE_ACK_REPORTS"),
		StorageDir:        v.GetString("ACK_REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("ACK_REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("ACK_REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("ACK_REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("ACK_REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("ACK_REPORTS_WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_announce")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("FEED_SUMMARY_CACHE_TTL", "2m")
	v.SetDefault("FEED_NEW_WINDOW", "24h")
	v.SetDefault("FEED_EXPIRING_WINDOW", "48h")
	v.SetDefault("FEED_DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("FEED_MAX_PAGE_SIZE", 100)
	v.SetDefault("ATTACHMENT_URL_TTL", "1h")
	v.SetDefault("ATTACHMENT_URL_SECRET", "dev_attachment_secret")

	v.SetDefault("ENABLE_ACK_REPORTS", false)
	v.SetDefault("ACK_REPORTS_STORAGE_DIR", "./ack-reports")
	v.SetDefault("ACK_REPORTS_SIGNED_URL_SECRET", "dev_ack_reports_secret")
	v.SetDefault("ACK_REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("ACK_REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("ACK_REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("ACK_REPORTS_WORKER_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
