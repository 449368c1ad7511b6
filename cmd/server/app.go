package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"

	"donormatch/internal/donors/cache"
	"donormatch/internal/donors/store"
	"donormatch/internal/matching/handler"
	matchmetrics "donormatch/internal/matching/metrics"
	"donormatch/internal/matching/notify"
	"donormatch/internal/matching/observability"
	"donormatch/internal/matching/ordering"
	"donormatch/internal/matching/ports"
	"donormatch/internal/matching/service"
	"donormatch/internal/matching/source/breaker"
	"donormatch/internal/matching/source/memory"
	pgsource "donormatch/internal/matching/source/postgres"
	"donormatch/internal/platform/config"
	"donormatch/internal/platform/kafka"
	httpmetrics "donormatch/internal/platform/metrics"
	"donormatch/internal/platform/middleware"
	"donormatch/internal/platform/postgres"
	"donormatch/internal/platform/redis"
)

const tracerName = "donormatch/matching"

// app owns the long-lived clients so they can be closed on shutdown.
type app struct {
	router  http.Handler
	storage string

	pool   *pgxpool.Pool
	db     *sql.DB
	redis  *redis.Client
	kafka  *kgo.Client
	logger *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}
	if err := a.wire(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg *config.Config) error {
	logger := a.logger

	checks := map[string]handler.HealthCheck{}

	source, donors, err := a.buildStorage(ctx, cfg, checks)
	if err != nil {
		return err
	}
	source = breaker.New("locus-match-source", source, cfg.Breaker, logger)

	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	cacheOpts := []cache.Option{
		cache.WithLocalCache(cfg.Cache.LocalSize, cfg.Cache.TTL),
		cache.WithKeyPrefix(cfg.Cache.KeyPrefix),
		cache.WithLogger(logger),
	}
	if a.redis != nil {
		cacheOpts = append(cacheOpts, cache.WithRedis(a.redis, cfg.Cache.TTL))
		checks["redis"] = a.redis.Health
	}
	resolver, err := cache.New(donors, cacheOpts...)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := service.New(source, resolver,
		service.WithStrategy(ordering.NewSelectivityStrategy(ordering.WithMaxPhaseOneLoci(cfg.Matching.MaxPhaseOneLoci))),
		service.WithObserver(service.Observers(
			observability.NewMetricsObserver(matchmetrics.New(reg)),
			observability.NewTracingObserver(otel.Tracer(tracerName)),
			observability.NewLoggingObserver(logger),
		)),
		service.WithSearchTimeout(cfg.Matching.SearchTimeout),
		service.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	publisher, err := a.buildPublisher(ctx, cfg.Kafka, checks)
	if err != nil {
		return err
	}

	h := handler.New(svc, logger, handler.WithPublisher(publisher))
	a.router = handler.NewRouter(h, reg, checks,
		middleware.Metrics(httpmetrics.New(reg)),
		middleware.RequestLogger(logger),
	)
	return nil
}

// buildStorage picks Postgres when a database URL is configured and the
// in-memory stores otherwise.
func (a *app) buildStorage(ctx context.Context, cfg *config.Config, checks map[string]handler.HealthCheck) (ports.LocusMatchSource, ports.DonorResolver, error) {
	if cfg.Database.URL == "" {
		a.storage = "memory"
		a.logger.WarnContext(ctx, "no database configured, using empty in-memory donor stores")
		return memory.New(memory.WithBatchSize(cfg.Matching.BatchSize)), store.NewInMemoryStore(), nil
	}

	var err error
	a.storage = "postgres"
	a.db, err = postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.ApplySchema(ctx, a.db); err != nil {
		return nil, nil, err
	}
	a.pool, err = postgres.NewPool(ctx, cfg.Database, a.logger)
	if err != nil {
		return nil, nil, err
	}
	checks["postgres"] = a.pool.Ping

	source := pgsource.New(a.pool, pgsource.WithBatchSize(cfg.Matching.BatchSize))
	donors := store.NewPostgres(a.db, store.WithBatchSize(cfg.Matching.BatchSize))
	return source, donors, nil
}

func (a *app) buildPublisher(ctx context.Context, cfg config.Kafka, checks map[string]handler.HealthCheck) (notify.Publisher, error) {
	var err error
	a.kafka, err = kafka.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if a.kafka == nil {
		return notify.NopPublisher{}, nil
	}
	if err := kafka.EnsureTopic(ctx, a.kafka, cfg); err != nil {
		return nil, err
	}
	checks["kafka"] = a.kafka.Ping
	return notify.NewKafkaPublisher(a.kafka, cfg.Topic), nil
}

// Close releases every client that was opened.
func (a *app) Close() {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("closing clients", "error", err)
	}
}
