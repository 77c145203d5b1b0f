package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/infra/config"
	"github.com/giovaniif/stock-records/infra/gateways"
	"github.com/giovaniif/stock-records/infra/logger"
	"github.com/giovaniif/stock-records/infra/repositories"
	"github.com/giovaniif/stock-records/infra/scheduler"
	"github.com/giovaniif/stock-records/protocols"
	"github.com/giovaniif/stock-records/use_cases/lookup"
	"github.com/giovaniif/stock-records/use_cases/receive"
	"github.com/giovaniif/stock-records/use_cases/register"
	"github.com/giovaniif/stock-records/use_cases/release"
	"github.com/giovaniif/stock-records/use_cases/reorder"
	"github.com/giovaniif/stock-records/use_cases/reserve"
	"github.com/giovaniif/stock-records/use_cases/ship"
)

const shutdownTimeout = 15 * time.Second

// StartServer wires the configured store, gateways and use cases and serves
// until ctx is canceled.
func StartServer(ctx context.Context, cfg *config.Config, baseLogger *zap.Logger) error {
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	recordRepository, closeStore, storeCheck, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, closeStore)
	checks := []HealthCheck{storeCheck}
	baseLogger.Info("stock store ready", zap.String("driver", cfg.Store.Driver))

	var idempotencyGateway protocols.IdempotencyGateway
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		redisGateway := gateways.NewIdempotencyGatewayRedis(rdb)
		if err := redisGateway.Ping(ctx); err != nil {
			baseLogger.Warn("redis ping failed, using in-memory idempotency", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = rdb.Close()
			idempotencyGateway = gateways.NewIdempotencyGatewayMemory()
		} else {
			baseLogger.Info("idempotency: redis", zap.String("addr", cfg.Redis.Addr))
			idempotencyGateway = redisGateway
			checks = append(checks, HealthCheck{Name: "redis", Ping: redisGateway.Ping})
			cleanup = append(cleanup, func() { _ = rdb.Close() })
		}
	} else {
		baseLogger.Info("idempotency: in-memory (set REDIS_ADDR for redis)")
		idempotencyGateway = gateways.NewIdempotencyGatewayMemory()
	}

	var eventPublisher protocols.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		eventPublisher = gateways.NewEventPublisherKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.Named(baseLogger, "events"))
		baseLogger.Info("events: kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		eventPublisher = gateways.NewEventPublisherLog(logger.Named(baseLogger, "events"))
		baseLogger.Info("events: log only (set KAFKA_BROKERS for kafka)")
	}
	cleanup = append(cleanup, func() {
		if err := eventPublisher.Close(); err != nil {
			baseLogger.Error("failed to close event publisher", zap.Error(err))
		}
	})

	reorderUseCase := reorder.NewReorder(recordRepository, eventPublisher)
	sched := scheduler.NewScheduler(cfg.Reorder.Schedule, reorderUseCase, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("reorder schedule %q: %w", cfg.Reorder.Schedule, err)
	}
	cleanup = append(cleanup, sched.Stop)

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(Dependencies{
		Register:    register.NewRegister(recordRepository, eventPublisher),
		Receive:     receive.NewReceive(recordRepository, eventPublisher),
		Reserve:     reserve.NewReserve(recordRepository, eventPublisher),
		Release:     release.NewRelease(recordRepository, eventPublisher),
		Ship:        ship.NewShip(recordRepository, eventPublisher),
		Lookup:      lookup.NewLookup(recordRepository),
		Reorder:     reorderUseCase,
		Idempotency: idempotencyGateway,
		HealthCheck: checks,
		Logger:      baseLogger,
		Timeout:     cfg.Server.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		baseLogger.Info("stock is running", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	baseLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (record.Repository, func(), HealthCheck, error) {
	switch cfg.Driver {
	case config.StorePostgres:
		repo, err := repositories.NewRecordRepositoryPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, HealthCheck{}, err
		}
		return repo, func() { _ = repo.Close() }, HealthCheck{Name: "postgres", Ping: repo.Ping}, nil
	case config.StoreMongo:
		repo, err := repositories.NewRecordRepositoryMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, HealthCheck{}, err
		}
		closeFn := func() { _ = repo.Close(context.Background()) }
		return repo, closeFn, HealthCheck{Name: "mongo", Ping: repo.Ping}, nil
	default:
		repo := repositories.NewRecordRepositoryMemory()
		return repo, func() {}, HealthCheck{Name: "memory", Ping: repo.Ping}, nil
	}
}
