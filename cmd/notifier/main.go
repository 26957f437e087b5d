// Command notifier runs the case notification dispatcher: the intake API,
// the delivery workers, the redelivery sweep and the operations endpoint.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"casetrack/internal/config"
	hhttp "casetrack/internal/handler/http"
	"casetrack/internal/handler/http/auth"
	"casetrack/internal/handler/http/notification"
	pgRepo "casetrack/internal/infra/adapter/persistence/postgres"
	sqliteRepo "casetrack/internal/infra/adapter/persistence/sqlite"
	"casetrack/internal/infra/db"
	"casetrack/internal/infra/dedup"
	"casetrack/internal/infra/notifier"
	natsQueue "casetrack/internal/infra/queue/nats"
	workerPkg "casetrack/internal/infra/worker"
	"casetrack/internal/observability/logging"
	"casetrack/internal/observability/metrics"
	"casetrack/internal/observability/tracing"
	"casetrack/internal/repository"
	"casetrack/internal/resilience/circuitbreaker"
	"casetrack/internal/usecase/notify"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger := initLogger()

	if err := run(logger); err != nil {
		logger.Error("notifier stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("notifier stopped")
}

// initLogger initializes the process logger from LOG_LEVEL and LOG_FORMAT.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadNotifyConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	workerMetrics := workerPkg.NewWorkerMetrics(prometheus.DefaultRegisterer)
	wcfg, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.String("redelivery_schedule", wcfg.RedeliverySchedule),
		slog.String("timezone", wcfg.Timezone),
		slog.Int("workers", wcfg.Workers),
		slog.Int("queue_size", wcfg.QueueSize),
		slog.Duration("delivery_timeout", wcfg.DeliveryTimeout),
		slog.Bool("redelivery_enabled", wcfg.RedeliveryEnabled),
		slog.Int("health_port", wcfg.HealthPort))

	shutdownTracing, err := tracing.Setup(tracing.Config{
		ServiceName: "casetrack-notifier",
		Version:     version,
		SampleRatio: wcfg.TracingSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	database, driver, err := initDatabase(logger, cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := metrics.RegisterDBStats(prometheus.DefaultRegisterer, database, "casetrack"); err != nil {
		logger.Warn("database pool metrics unavailable", slog.Any("error", err))
	}
	metrics.SetBuildInfo(version, driver)
	cases, deliveries := newRepositories(driver, circuitbreaker.NewDBCircuitBreaker(database))

	registry, err := notify.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		return fmt.Errorf("load notification types: %w", err)
	}
	logger.Info("notification types loaded", slog.Any("types", registry.Names()))

	channel := newPushChannel(logger, cfg)

	deps := notify.Dependencies{
		Registry:   registry,
		Renderer:   notify.NewRenderer(cfg.RenderOptions()),
		Cases:      cases,
		Channel:    channel,
		Deliveries: deliveries,
	}

	var queue *natsQueue.Queue
	switch {
	case !cfg.Async:
		if cfg.NATS.URL != "" {
			logger.Warn("NATS_URL ignored in synchronous mode")
		}
	case cfg.NATS.URL != "":
		queue, err = natsQueue.Connect(natsQueue.Config{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
			Group:   cfg.NATS.Group,
			Buffer:  wcfg.QueueSize,
		})
		if err != nil {
			return fmt.Errorf("connect queue: %w", err)
		}
		deps.Queue = queue
		logger.Info("NATS queue connected", slog.String("subject", cfg.NATS.Subject))
	default:
		deps.Queue = notify.NewMemoryQueue(wcfg.QueueSize)
		logger.Info("in-memory queue enabled", slog.Int("size", wcfg.QueueSize))
	}

	if cfg.Redis.Addr != "" {
		client := dedup.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = client.Close() }()
		deps.Deduper = dedup.NewRedisDeduper(client)
		logger.Info("duplicate suppression enabled",
			slog.String("redis_addr", cfg.Redis.Addr),
			slog.Duration("ttl", cfg.DedupTTL))
	}

	svc, err := notify.NewService(deps, wcfg.ServiceConfig(cfg.Async, cfg.DedupTTL))
	if err != nil {
		return fmt.Errorf("create notification service: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start notification service: %w", err)
	}

	scheduler := cron.New(cron.WithLocation(wcfg.Location()))
	if wcfg.RedeliveryEnabled {
		redeliverer := notify.NewRedeliverer(deliveries, svc, wcfg.RedeliveryConfig())
		redeliverer.Observe(workerMetrics.ObserveSweep)
		if _, err := redeliverer.Schedule(scheduler, wcfg.RedeliverySchedule); err != nil {
			return fmt.Errorf("schedule redelivery: %w", err)
		}
	} else {
		logger.Warn("redelivery sweep disabled")
	}
	scheduler.Start()

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", wcfg.HealthPort), logger)
	healthServer.AddCheck("database", database.PingContext)
	if queue != nil {
		healthServer.AddCheck("queue", func(context.Context) error {
			if !queue.IsConnected() {
				return errors.New("nats disconnected")
			}
			return nil
		})
	}
	healthServer.SetChannelHealth(svc.GetChannelHealth)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := healthServer.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	if cfg.HTTP.Addr != "" {
		intake := newIntakeServer(logger, cfg, svc, registry, healthServer)
		g.Go(func() error {
			logger.Info("intake server starting", slog.String("addr", intake.Addr), slog.String("version", version))
			if err := intake.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("intake server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), wcfg.ShutdownTimeout)
			defer cancel()
			return intake.Shutdown(shutdownCtx)
		})
	}

	healthServer.SetReady(true)
	logger.Info("notifier started", slog.String("version", version), slog.Bool("async", cfg.Async))

	<-gctx.Done()
	logger.Info("shutting down")
	healthServer.SetReady(false)

	cronCtx := scheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), wcfg.ShutdownTimeout)
	defer cancel()
	select {
	case <-cronCtx.Done():
	case <-shutdownCtx.Done():
		logger.Warn("redelivery sweep still running at shutdown")
	}

	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("notification service shutdown incomplete", slog.Any("error", err))
	}

	return g.Wait()
}

// initDatabase opens the database and applies migrations.
func initDatabase(logger *slog.Logger, cfg config.DBConfig) (*sql.DB, string, error) {
	driver, err := db.NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, "", err
	}
	database, err := db.Open(driver, cfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("open database: %w", err)
	}
	if err := db.MigrateUp(database, driver); err != nil {
		_ = database.Close()
		return nil, "", fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database ready", slog.String("driver", driver))
	return database, driver, nil
}

func newRepositories(driver string, q repository.Querier) (repository.CaseRepository, repository.DeliveryRepository) {
	if driver == db.DriverSQLite {
		return sqliteRepo.NewCaseRepo(q), sqliteRepo.NewDeliveryRepo(q)
	}
	return pgRepo.NewCaseRepo(q), pgRepo.NewDeliveryRepo(q)
}

// newPushChannel builds the OneSignal channel. With PUSH_ENABLED=false
// notifications are logged and discarded.
func newPushChannel(logger *slog.Logger, cfg *config.NotifyConfig) *notify.PushChannel {
	if !cfg.PushEnabled {
		logger.Info("push delivery disabled, using no-op notifier")
		return notify.NewPushChannel("onesignal", true, notifier.NewNoOpNotifier())
	}
	if !cfg.HasPushCredentials() {
		logger.Warn("OneSignal credentials missing, notifications will be rejected until configured")
	}
	return notify.NewPushChannel("onesignal", true, notifier.NewOneSignalNotifier(cfg.NotifierConfig()))
}

// newIntakeServer mounts the notification routes and the health and metrics endpoints
// behind the intake middleware chain.
func newIntakeServer(logger *slog.Logger, cfg *config.NotifyConfig, svc notify.Service, registry *notify.Registry, hs *workerPkg.HealthServer) *http.Server {
	mux := http.NewServeMux()
	notification.Register(mux, svc, registry)

	ops := hs.Handler()
	mux.Handle("GET /health", ops)
	mux.Handle("GET /health/ready", ops)
	mux.Handle("GET /metrics", ops)

	handler := hhttp.NewRouter(mux, hhttp.RouterConfig{
		Logger: logger,
		Auth: auth.Config{
			Secret:       []byte(cfg.HTTP.JWTSecret),
			AllowedRoles: cfg.HTTP.AllowedRoles,
		},
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	})

	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
