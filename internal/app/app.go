package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/mkrylova/shopcore/internal/cache"
	healthcheck "github.com/mkrylova/shopcore/internal/health"
	"github.com/mkrylova/shopcore/internal/messaging/kafka"
	idempsvc "github.com/mkrylova/shopcore/internal/service/idempotency"
	"github.com/mkrylova/shopcore/internal/service/orders"
	"github.com/mkrylova/shopcore/internal/service/outbox"
	"github.com/mkrylova/shopcore/internal/service/reviews"
	"github.com/mkrylova/shopcore/internal/transport/httpapi"
	"github.com/mkrylova/shopcore/internal/version"
)

// Run собирает зависимости и обслуживает HTTP API до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close storage")
		}
	}()

	// Kafka опционален: без брокеров события остаются в outbox.
	var kafkaProducer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}

	orderSvc := orders.NewService(deps.Orders, deps.Outbox, deps.Timeline, logger.WithField("layer", "orders"))

	reviewOptions := []reviews.ServiceOption{}
	if cfg.RedisAddr != "" {
		reviewCache := cache.NewRedisCache(cfg.RedisAddr, "shopcore")
		reviewOptions = append(reviewOptions, reviews.WithCache(reviewCache, cfg.ReviewCacheTTL))
		logger.WithField("addr", cfg.RedisAddr).Info("review cache enabled")
	}
	reviewSvc := reviews.NewService(
		deps.Reviews,
		reviews.NewGate(deps.Orders, deps.Reviews),
		deps.Outbox,
		logger.WithField("layer", "reviews"),
		reviewOptions...,
	)

	// Outbox worker публикует события в Kafka, когда он настроен.
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlqPublisher := kafka.NewDLQPublisher(kafkaProducer)
		worker := outbox.NewWorker(
			deps.Outbox,
			publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		)
		go worker.Run(ctx)
	}

	cleanup := idempsvc.NewCleanupWorker(
		deps.Idempotency,
		idempsvc.WithLogger(logger.WithField("component", "idempotency-cleanup-worker")),
		idempsvc.WithInterval(cfg.IdempotencyCleanupInterval),
	)
	go cleanup.Run(ctx)

	handler := httpapi.NewHandler(orderSvc, reviewSvc, logger.WithField("layer", "http"))
	router := httpapi.NewRouter(handler, httpapi.RouterOptions{
		IdempotencyRepo: deps.Idempotency,
		IdempotencyTTL:  cfg.IdempotencyTTL,
	})

	healthHandler := healthcheck.NewHandler("shopcore", version.String())
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return deps.Store.Ping(pingCtx)
		}))
	}

	metricsSrv := startMetricsServer(cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	closeKafka := func() {
		if kafkaProducer == nil {
			return
		}
		if err := kafkaProducer.Close(); err != nil {
			logger.WithError(err).Warn("failed to close kafka producer")
		} else {
			logger.Info("kafka producer closed")
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeKafka()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeKafka()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
