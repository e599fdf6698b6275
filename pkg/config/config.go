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

// Score source backends.
const (
	ScoreSourceHTTP     = "http"
	ScoreSourcePostgres = "postgres"
)

// Notification bus backends.
const (
	NotificationBusMemory = "memory"
	NotificationBusKafka  = "kafka"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Upstream      UpstreamConfig
	Accumulator   AccumulatorConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Classrooms    ClassroomConfig
	Notifications NotificationConfig
	Exports       ExportsConfig
}

// UpstreamConfig points at the classroom REST backend.
type UpstreamConfig struct {
	BaseURL     string
	Timeout     time.Duration
	ScoreSource string
}

// AccumulatorConfig tunes the paged score drain.
type AccumulatorConfig struct {
	PageSize     int
	MaxPages     int
	MaxRetries   int
	RetryBackoff time.Duration
}

type DatabaseConfig struct {
	Enabled      bool
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret   string
	Required bool
	// ExportScopes lists the token scopes allowed to request exports.
	ExportScopes []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ClassroomConfig controls caching of the classroom listing.
type ClassroomConfig struct {
	CacheTTL time.Duration
	PageSize int
}

// NotificationConfig selects the notification bus and expiry.
type NotificationConfig struct {
	Bus          string
	TTL          time.Duration
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string
}

// ExportsConfig configures asynchronous score exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	JobTimeout        time.Duration
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
		BaseURL:     strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout:     parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 10*time.Second),
		ScoreSource: strings.ToLower(v.GetString("SCORE_SOURCE")),
	}

	cfg.Accumulator = AccumulatorConfig{
		PageSize:     positiveOr(v.GetInt("ACCUMULATOR_PAGE_SIZE"), 20),
		MaxPages:     positiveOr(v.GetInt("ACCUMULATOR_MAX_PAGES"), 500),
		MaxRetries:   v.GetInt("ACCUMULATOR_MAX_RETRIES"),
		RetryBackoff: parseDuration(v.GetString("ACCUMULATOR_RETRY_BACKOFF"), 200*time.Millisecond),
	}

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("DB_ENABLED"),
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Required:     v.GetBool("AUTH_REQUIRED"),
		ExportScopes: splitAndTrim(v.GetString("EXPORT_SCOPES")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Classrooms = ClassroomConfig{
		CacheTTL: parseDuration(v.GetString("CLASSROOM_CACHE_TTL"), 5*time.Minute),
		PageSize: positiveOr(v.GetInt("CLASSROOM_PAGE_SIZE"), 100),
	}

	cfg.Notifications = NotificationConfig{
		Bus:          strings.ToLower(v.GetString("NOTIFICATIONS_BUS")),
		TTL:          parseDuration(v.GetString("NOTIFICATIONS_TTL"), 5*time.Second),
		KafkaBrokers: splitAndTrim(v.GetString("NOTIFICATIONS_KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("NOTIFICATIONS_KAFKA_TOPIC"),
		KafkaGroup:   v.GetString("NOTIFICATIONS_KAFKA_GROUP"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
		JobTimeout:        parseDuration(v.GetString("EXPORTS_JOB_TIMEOUT"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:8081")
	v.SetDefault("UPSTREAM_TIMEOUT", "10s")
	v.SetDefault("SCORE_SOURCE", ScoreSourceHTTP)

	v.SetDefault("ACCUMULATOR_PAGE_SIZE", 20)
	v.SetDefault("ACCUMULATOR_MAX_PAGES", 500)
	v.SetDefault("ACCUMULATOR_MAX_RETRIES", 2)
	v.SetDefault("ACCUMULATOR_RETRY_BACKOFF", "200ms")

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ptit_classroom")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("AUTH_REQUIRED", false)
	v.SetDefault("EXPORT_SCOPES", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CLASSROOM_CACHE_TTL", "5m")
	v.SetDefault("CLASSROOM_PAGE_SIZE", 100)

	v.SetDefault("NOTIFICATIONS_BUS", NotificationBusMemory)
	v.SetDefault("NOTIFICATIONS_TTL", "5s")
	v.SetDefault("NOTIFICATIONS_KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("NOTIFICATIONS_KAFKA_TOPIC", "score-dashboard.notifications")
	v.SetDefault("NOTIFICATIONS_KAFKA_GROUP", "score-api")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)
	v.SetDefault("EXPORTS_JOB_TIMEOUT", "5m")
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

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
