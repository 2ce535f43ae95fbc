package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers []string

	RedisAddr      string
	ReviewCacheTTL time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int

	IdempotencyTTL             time.Duration
	IdempotencyCleanupInterval time.Duration
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                   ":8080",
		MetricsAddr:                ":9090",
		StorageDriver:              StorageDriverMemory,
		PostgresAutoMigrate:        true,
		ReviewCacheTTL:             30 * time.Second,
		OutboxPollInterval:         time.Second,
		OutboxBatchSize:            50,
		OutboxMaxAttempts:          3,
		IdempotencyTTL:             24 * time.Hour,
		IdempotencyCleanupInterval: 10 * time.Minute,
	}
}

// LoadConfigFromEnv читает настройки из окружения поверх дефолтов.
// Все переменные имеют префикс SHOPCORE_.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("SHOPCORE_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("SHOPCORE_METRICS_ADDR", cfg.MetricsAddr)
	cfg.StorageDriver = envString("SHOPCORE_STORAGE_DRIVER", cfg.StorageDriver)
	cfg.PostgresDSN = envString("SHOPCORE_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresAutoMigrate = envBool("SHOPCORE_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)
	cfg.KafkaBrokers = envList("SHOPCORE_KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.RedisAddr = envString("SHOPCORE_REDIS_ADDR", cfg.RedisAddr)
	cfg.ReviewCacheTTL = envDuration("SHOPCORE_REVIEW_CACHE_TTL", cfg.ReviewCacheTTL)
	cfg.OutboxPollInterval = envDuration("SHOPCORE_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("SHOPCORE_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envInt("SHOPCORE_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.IdempotencyTTL = envDuration("SHOPCORE_IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.IdempotencyCleanupInterval = envDuration("SHOPCORE_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval)

	return cfg
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("postgres storage requires SHOPCORE_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if c.HTTPAddr == "" {
		return fmt.Errorf("http address must not be empty")
	}
	return nil
}

func envString(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envList(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
