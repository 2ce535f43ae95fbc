package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/mkrylova/shopcore/internal/domain"
	"github.com/mkrylova/shopcore/internal/storage/memory"
	"github.com/mkrylova/shopcore/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения, собранные по конфигурации.
type Dependencies struct {
	Orders      domain.OrderRepository
	Reviews     domain.ReviewRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository

	// Store не nil только для postgres-драйвера.
	Store  *postgres.Store
	Logger *log.Entry
}

// NewDependencies создаёт хранилища для выбранного драйвера.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &Dependencies{
			Orders:      memory.NewOrderRepository(),
			Reviews:     memory.NewReviewRepository(),
			Outbox:      memory.NewOutboxRepository(),
			Timeline:    memory.NewTimelineRepository(),
			Idempotency: memory.NewIdempotencyRepository(),
			Logger:      logger,
		}, nil

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}

		logger.Info("using postgres storage")
		return &Dependencies{
			Orders:      postgres.NewOrderRepository(store),
			Reviews:     postgres.NewReviewRepository(store),
			Outbox:      postgres.NewOutboxRepository(store),
			Timeline:    postgres.NewTimelineRepository(store),
			Idempotency: postgres.NewIdempotencyRepository(store),
			Store:       store,
			Logger:      logger,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d == nil || d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
