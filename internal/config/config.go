package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings sourced from environment variables.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Mail      MailConfig      `mapstructure:"mail"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Log       LogConfig       `mapstructure:"log"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	ClientURL      string   `mapstructure:"client_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// DatabaseConfig contains connection and pool options for PostgreSQL.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig contains the Redis connection used by the login guard, the analytics queue and the live feed.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig contains token and login-guard settings.
type AuthConfig struct {
	JWTSecret             string        `mapstructure:"jwt_secret"`
	JWTTTL                time.Duration `mapstructure:"jwt_ttl"`
	LoginRateLimitPerHour int           `mapstructure:"login_rate_limit_per_hour"`
	LoginLockThreshold    int           `mapstructure:"login_lock_threshold"`
	LoginLockTTL          time.Duration `mapstructure:"login_lock_ttl"`
	VerifyTokenTTL        time.Duration `mapstructure:"verify_token_ttl"`
	ResetTokenTTL         time.Duration `mapstructure:"reset_token_ttl"`
}

// Upload backends.
const (
	UploadsBackendInline = "inline"
	UploadsBackendMinIO  = "minio"
)

// UploadsConfig selects where profile images live and how they are screened.
type UploadsConfig struct {
	Backend   string `mapstructure:"backend"`
	MaxBytes  int64  `mapstructure:"max_bytes"`
	ClamdAddr string `mapstructure:"clamd_addr"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Region           string `mapstructure:"region"`
	Bucket           string `mapstructure:"bucket"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// MailConfig configures the transactional mail transport. An empty API key logs mail instead of sending it.
type MailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
}

// Analytics queue modes.
const (
	AnalyticsQueueAsynq  = "asynq"
	AnalyticsQueueInline = "inline"
)

// AnalyticsConfig controls how tracked events travel from the API to the store.
type AnalyticsConfig struct {
	Queue         string  `mapstructure:"queue"`
	InlineWorkers int     `mapstructure:"inline_workers"`
	InlineBuffer  int     `mapstructure:"inline_buffer"`
	IngestRate    float64 `mapstructure:"ingest_rate"`
	IngestBurst   int     `mapstructure:"ingest_burst"`
}

// WorkerConfig contains asynq server settings for cmd/worker.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewLogger builds the process logger: JSON by default, text when Format is "text".
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// DSN builds a pgx compatible connection string. Sessions run in UTC so day buckets match the API.
func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
	if secs := int(d.ConnectTimeout.Seconds()); secs > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", secs)
	}
	return dsn
}

// Addr returns host:port for go-redis and asynq.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.API.AllowedOrigins = splitList(cfg.API.AllowedOrigins)
	cfg.API.TrustedProxies = splitList(cfg.API.TrustedProxies)
	if len(cfg.API.AllowedOrigins) == 0 && cfg.API.ClientURL != "" {
		cfg.API.AllowedOrigins = []string{cfg.API.ClientURL}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.client_url", "http://localhost:5173")
	v.SetDefault("api.allowed_origins", "")
	v.SetDefault("api.trusted_proxies", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "linkpage")
	v.SetDefault("database.user", "linkpage")
	v.SetDefault("database.password", "linkpage")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_idle_time", "30s")
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_ttl", "24h")
	v.SetDefault("auth.login_rate_limit_per_hour", 10)
	v.SetDefault("auth.login_lock_threshold", 5)
	v.SetDefault("auth.login_lock_ttl", "15m")
	v.SetDefault("auth.verify_token_ttl", "24h")
	v.SetDefault("auth.reset_token_ttl", "1h")
	v.SetDefault("uploads.backend", UploadsBackendInline)
	v.SetDefault("uploads.max_bytes", 5*1024*1024)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "linkpage-assets")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("mail.from", "LinkPage <noreply@linkpage.app>")
	v.SetDefault("analytics.queue", AnalyticsQueueAsynq)
	v.SetDefault("analytics.inline_workers", 4)
	v.SetDefault("analytics.inline_buffer", 1024)
	v.SetDefault("analytics.ingest_rate", 200.0)
	v.SetDefault("analytics.ingest_burst", 400)
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                       "API_PORT",
		"api.client_url":                 "CLIENT_URL",
		"api.allowed_origins":            "API_ALLOWED_ORIGINS",
		"api.trusted_proxies":            "API_TRUSTED_PROXIES",
		"database.host":                  "DATABASE_HOST",
		"database.port":                  "DATABASE_PORT",
		"database.name":                  "POSTGRES_DB",
		"database.user":                  "POSTGRES_USER",
		"database.password":              "POSTGRES_PASSWORD",
		"database.sslmode":               "DATABASE_SSLMODE",
		"database.max_open_conns":        "DATABASE_MAX_OPEN_CONNS",
		"database.max_idle_conns":        "DATABASE_MAX_IDLE_CONNS",
		"database.conn_max_idle_time":    "DATABASE_CONN_MAX_IDLE_TIME",
		"database.conn_max_lifetime":     "DATABASE_CONN_MAX_LIFETIME",
		"database.connect_timeout":       "DATABASE_CONNECT_TIMEOUT",
		"redis.host":                     "REDIS_HOST",
		"redis.port":                     "REDIS_PORT",
		"redis.password":                 "REDIS_PASSWORD",
		"redis.db":                       "REDIS_DB",
		"auth.jwt_secret":                "JWT_SECRET",
		"auth.jwt_ttl":                   "JWT_EXPIRES_IN",
		"auth.login_rate_limit_per_hour": "AUTH_LOGIN_RATE_LIMIT_PER_HOUR",
		"auth.login_lock_threshold":      "AUTH_LOGIN_LOCK_THRESHOLD",
		"auth.login_lock_ttl":            "AUTH_LOGIN_LOCK_TTL",
		"auth.verify_token_ttl":          "AUTH_VERIFY_TOKEN_TTL",
		"auth.reset_token_ttl":           "AUTH_RESET_TOKEN_TTL",
		"uploads.backend":                "UPLOADS_BACKEND",
		"uploads.max_bytes":              "UPLOADS_MAX_BYTES",
		"uploads.clamd_addr":             "CLAMD_ADDR",
		"minio.endpoint":                 "MINIO_ENDPOINT",
		"minio.public_endpoint":          "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                  "MINIO_USE_SSL",
		"minio.region":                   "MINIO_REGION",
		"minio.bucket":                   "MINIO_BUCKET",
		"minio.bucket_lookup":            "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":       "MINIO_AUTO_CREATE_BUCKET",
		"mail.resend_api_key":            "RESEND_API_KEY",
		"mail.from":                      "MAIL_FROM",
		"analytics.queue":                "ANALYTICS_QUEUE",
		"analytics.inline_workers":       "ANALYTICS_INLINE_WORKERS",
		"analytics.inline_buffer":        "ANALYTICS_INLINE_BUFFER",
		"analytics.ingest_rate":          "ANALYTICS_INGEST_RATE",
		"analytics.ingest_burst":         "ANALYTICS_INGEST_BURST",
		"worker.concurrency":             "WORKER_CONCURRENCY",
		"log.level":                      "LOG_LEVEL",
		"log.format":                     "LOG_FORMAT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

// splitList normalises list values that arrive from env as one comma separated string.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Database.MaxOpenConns <= 0 {
		return errors.New("database max open conns must be positive")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return errors.New("jwt secret is required")
	}
	if cfg.Auth.JWTTTL <= 0 {
		return errors.New("jwt ttl must be positive")
	}
	if cfg.Uploads.MaxBytes <= 0 {
		return errors.New("uploads max bytes must be positive")
	}
	switch cfg.Uploads.Backend {
	case UploadsBackendInline:
	case UploadsBackendMinIO:
		if cfg.MinIO.Endpoint == "" {
			return errors.New("minio endpoint is required")
		}
		if cfg.MinIO.AccessKeyID == "" {
			return errors.New("minio access key id is required")
		}
		if cfg.MinIO.SecretAccessKey == "" {
			return errors.New("minio secret access key is required")
		}
		if cfg.MinIO.Bucket == "" {
			return errors.New("minio bucket is required")
		}
	default:
		return fmt.Errorf("unknown uploads backend %q", cfg.Uploads.Backend)
	}
	switch cfg.Analytics.Queue {
	case AnalyticsQueueAsynq, AnalyticsQueueInline:
	default:
		return fmt.Errorf("unknown analytics queue %q", cfg.Analytics.Queue)
	}
	if cfg.Analytics.InlineWorkers <= 0 {
		return errors.New("analytics inline workers must be positive")
	}
	if cfg.Analytics.IngestRate <= 0 {
		return errors.New("analytics ingest rate must be positive")
	}
	return nil
}
