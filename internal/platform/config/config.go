package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "claimdesk/pkg/platform/strings"
)

// Config is the full process configuration, grouped by the subsystem it feeds.
type Config struct {
	Server   Server
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	APIPrefix       string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// LogConfig selects slog level and output format ("json" or "text").
type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig enables the Postgres claim store when URL is set.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig enables the read-through claim cache when URL is set.
type RedisConfig struct {
	URL          string
	CacheTTL     time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the Kafka audit sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers     []string
	AuditTopic  string
	AuditBuffer int
}

// TracingConfig controls span sampling. A zero ratio disables tracing.
type TracingConfig struct {
	SampleRatio float64
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var (
		cfg Config
		err error
	)

	cfg.Server.Addr = envString("CLAIMS_ADDR", ":8080")
	cfg.Server.APIPrefix = normalizePrefix(envString("API_PREFIX", "/api/v1"))
	if cfg.Server.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Server.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}

	cfg.Log.Level = strings.ToLower(envString("LOG_LEVEL", "info"))
	cfg.Log.Format = strings.ToLower(envString("LOG_FORMAT", "json"))
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return Config{}, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.Log.Format)
	}

	cfg.Database.URL = envString("DATABASE_URL", "")
	if cfg.Database.MaxOpenConns, err = envInt("DATABASE_MAX_OPEN_CONNS", 10); err != nil {
		return Config{}, err
	}
	if cfg.Database.MaxIdleConns, err = envInt("DATABASE_MAX_IDLE_CONNS", 5); err != nil {
		return Config{}, err
	}
	if cfg.Database.ConnMaxLifetime, err = envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return Config{}, err
	}

	cfg.Redis = RedisConfig{
		URL:          envString("REDIS_URL", ""),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	if cfg.Redis.CacheTTL, err = envDuration("REDIS_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}

	cfg.Kafka.Brokers = platformstrings.SplitList(envString("KAFKA_BROKERS", ""), ",")
	cfg.Kafka.AuditTopic = envString("KAFKA_AUDIT_TOPIC", "claims.audit")
	if cfg.Kafka.AuditBuffer, err = envInt("AUDIT_BUFFER", 256); err != nil {
		return Config{}, err
	}

	if cfg.Tracing.SampleRatio, err = envFloat("TRACE_SAMPLE_RATIO", 0); err != nil {
		return Config{}, err
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return Config{}, fmt.Errorf("TRACE_SAMPLE_RATIO must be between 0 and 1, got %v", cfg.Tracing.SampleRatio)
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return v, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, raw)
	}
	return v, nil
}

// normalizePrefix returns "" or a path starting with "/" and no trailing slash.
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
