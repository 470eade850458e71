package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/EcommerceGo/catalog/internal/config"
	"github.com/utafrali/EcommerceGo/catalog/internal/event"
	handler "github.com/utafrali/EcommerceGo/catalog/internal/handler/http"
	"github.com/utafrali/EcommerceGo/catalog/internal/idempotency"
	"github.com/utafrali/EcommerceGo/catalog/internal/repository/postgres"
	"github.com/utafrali/EcommerceGo/catalog/internal/service"
	"github.com/utafrali/EcommerceGo/catalog/internal/storage"
	"github.com/utafrali/EcommerceGo/catalog/internal/storage/memory"
	"github.com/utafrali/EcommerceGo/catalog/internal/storage/s3"
	"github.com/utafrali/EcommerceGo/catalog/migrations"
	"github.com/utafrali/EcommerceGo/catalog/pkg/database"
	"github.com/utafrali/EcommerceGo/catalog/pkg/health"
	pkgkafka "github.com/utafrali/EcommerceGo/catalog/pkg/kafka"
	"github.com/utafrali/EcommerceGo/catalog/pkg/middleware"
	"github.com/utafrali/EcommerceGo/catalog/pkg/tracing"
)

const serviceName = "catalog-service"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	tracerShutdown tracing.Shutdown
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
// Anything opened before a failing step is closed again.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	a.tracerShutdown, err = tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// PostgreSQL
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
	pgCfg := cfg.Postgres()
	a.pool, err = database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err = database.RegisterPoolMetrics(reg, a.pool, serviceName); err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart {
		if err = database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	blobs, media, err := newBlobStore(ctx, cfg, reg, logger)
	if err != nil {
		return nil, err
	}

	idem, err := a.newIdempotencyStore(ctx, logger)
	if err != nil {
		return nil, err
	}

	var events service.EventPublisher = event.Discard{}
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(cfg.Kafka, logger)
		events = event.NewProducer(a.producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.Kafka.Brokers))
	}

	svcMetrics, err := service.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	productService := service.NewProductService(
		postgres.NewCategoryRepository(a.pool),
		postgres.NewProductRepository(a.pool),
		blobs,
		events,
		logger,
		service.WithMetrics(svcMetrics),
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", a.pool.Ping)
	healthHandler.Register("storage", blobs.Ping)
	if a.redis != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(reg, serviceName)
	if err != nil {
		return nil, err
	}

	router := handler.NewRouter(handler.RouterConfig{
		Products:    productService,
		Health:      healthHandler,
		Idempotency: idem,
		Metrics:     httpMetrics,
		Gatherer:    reg,
		Limits: handler.Limits{
			MaxRequestBytes: cfg.MaxRequestBytes,
			MaxFileBytes:    cfg.MaxFileBytes,
			MaxFiles:        cfg.MaxUploadFiles,
		},
		Media:      media,
		TracerName: "catalog/http",
		Logger:     logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return a, nil
}

// newBlobStore builds the configured image store behind a circuit breaker.
// The returned handler serves in-memory blobs and is nil for S3.
func newBlobStore(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*storage.Breaker, http.Handler, error) {
	var (
		next  storage.Storage
		media http.Handler
	)
	switch cfg.StorageBackend {
	case config.BackendS3:
		s, err := s3.New(ctx, cfg.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("init s3 storage: %w", err)
		}
		next = s
		logger.Info("using s3 blob storage", slog.String("bucket", cfg.S3.Bucket))
	default:
		m := memory.New(cfg.BaseURL())
		next, media = m, m
		logger.Warn("using in-memory blob storage; images are lost on restart")
	}

	b, err := storage.NewBreaker(next, cfg.Breaker, reg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage breaker: %w", err)
	}
	return b, media, nil
}

// newIdempotencyStore returns nil when Idempotency-Key handling is disabled.
func (a *App) newIdempotencyStore(ctx context.Context, logger *slog.Logger) (idempotency.Store, error) {
	switch a.cfg.IdempotencyBackend {
	case config.BackendNone:
		return nil, nil
	case config.BackendRedis:
		client, err := database.NewRedisClient(ctx, a.cfg.Redis(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		logger.Info("connected to Redis", slog.String("addr", a.cfg.Redis().Addr()))
		return idempotency.NewRedisStore(client, a.cfg.IdempotencyTTL), nil
	default:
		return idempotency.NewMemoryStore(a.cfg.IdempotencyTTL), nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close(context.Background())
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var err error
	if a.httpServer != nil {
		if err = a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		}
	}
	a.close(ctx)

	a.logger.Info("application shutdown complete")
	return err
}

// close releases every opened backend; nil members are skipped.
func (a *App) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
