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

	Upstream   UpstreamConfig
	CacheTTL   CacheTTLConfig
	Pagination PaginationConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Refresh    RefreshConfig
	Exports    ExportsConfig
}

// UpstreamConfig points at the registrar API serving guardian and
// invoice data.
type UpstreamConfig struct {
	BaseURL       string
	BulkTimeout   time.Duration
	ItemTimeout   time.Duration
	FanoutWorkers int
}

// CacheTTLConfig tunes expiry per cached view.
type CacheTTLConfig struct {
	Bulk           time.Duration
	ProcessedList  time.Duration
	GuardianDetail time.Duration
	Invoices       time.Duration
	Search         time.Duration
}

// PaginationConfig bounds list page sizes.
type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
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

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RefreshConfig governs the periodic processed-list re-warm loop.
type RefreshConfig struct {
	Enabled  bool
	Interval time.Duration
}

// ExportsConfig toggles the delinquency PDF export endpoint.
type ExportsConfig struct {
	Enabled bool
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

	cfg.Upstream = UpstreamConfig{
		BaseURL:       strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		BulkTimeout:   parseDuration(v.GetString("UPSTREAM_BULK_TIMEOUT"), 30*time.Second),
		ItemTimeout:   parseDuration(v.GetString("UPSTREAM_ITEM_TIMEOUT"), 10*time.Second),
		FanoutWorkers: v.GetInt("FANOUT_WORKERS"),
	}

	cfg.CacheTTL = CacheTTLConfig{
		Bulk:           parseDuration(v.GetString("TTL_BULK"), time.Hour),
		ProcessedList:  parseDuration(v.GetString("TTL_PROCESSED_LIST"), 2*time.Hour),
		GuardianDetail: parseDuration(v.GetString("TTL_GUARDIAN_DETAIL"), 6*time.Hour),
		Invoices:       parseDuration(v.GetString("TTL_INVOICES"), 30*time.Minute),
		Search:         parseDuration(v.GetString("TTL_SEARCH"), 15*time.Minute),
	}

	cfg.Pagination = PaginationConfig{
		DefaultPageSize: v.GetInt("DEFAULT_PAGE_SIZE"),
		MaxPageSize:     v.GetInt("MAX_PAGE_SIZE"),
	}

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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Refresh = RefreshConfig{
		Enabled:  v.GetBool("ENABLE_REFRESH"),
		Interval: parseDuration(v.GetString("REFRESH_INTERVAL"), time.Hour),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:9000/api")
	v.SetDefault("UPSTREAM_BULK_TIMEOUT", "30s")
	v.SetDefault("UPSTREAM_ITEM_TIMEOUT", "10s")
	v.SetDefault("FANOUT_WORKERS", 10)

	v.SetDefault("TTL_BULK", "1h")
	v.SetDefault("TTL_PROCESSED_LIST", "2h")
	v.SetDefault("TTL_GUARDIAN_DETAIL", "6h")
	v.SetDefault("TTL_INVOICES", "30m")
	v.SetDefault("TTL_SEARCH", "15m")

	v.SetDefault("DEFAULT_PAGE_SIZE", 20)
	v.SetDefault("MAX_PAGE_SIZE", 100)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "guardian_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "guardian-portal-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_REFRESH", false)
	v.SetDefault("REFRESH_INTERVAL", "1h")
	v.SetDefault("ENABLE_EXPORTS", false)
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
