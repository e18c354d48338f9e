package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/labfunds-backend/api/routes"
	"github.com/angelmondragon/labfunds-backend/internal/expenses"
	"github.com/angelmondragon/labfunds-backend/internal/labs"
	"github.com/angelmondragon/labfunds-backend/internal/ledger"
	"github.com/angelmondragon/labfunds-backend/internal/notifications"
	"github.com/angelmondragon/labfunds-backend/internal/salaries"
	"github.com/angelmondragon/labfunds-backend/internal/users"
	"github.com/angelmondragon/labfunds-backend/pkg/config"
	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/events/kafka"
	"github.com/angelmondragon/labfunds-backend/pkg/lock"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/metrics"
	"github.com/angelmondragon/labfunds-backend/pkg/migrate"
	"github.com/angelmondragon/labfunds-backend/pkg/money"
	"github.com/angelmondragon/labfunds-backend/pkg/redis"
	"github.com/angelmondragon/labfunds-backend/pkg/storage/blob"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      logger.ParseFormat(cfg.App.LogFormat),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	pingers := routes.Pingers{DB: dbClient}
	var idempotencyStore redis.IdempotencyStore
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		pingers.Redis = redisClient
		idempotencyStore = redisClient
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	financeMetrics := metrics.NewFinanceMetrics(registry)

	var locker lock.Locker = lock.NewLocal()
	if cfg.Locks.UsesRedis() {
		if redisClient == nil {
			requireResource(ctx, logg, "redis lock backend", errors.New("redis lock backend selected without a redis endpoint"))
		}
		redisLocker, err := lock.NewRedis(redisClient, lock.RedisOptions{
			TTL:          cfg.Locks.TTL,
			WaitTimeout:  cfg.Locks.WaitTimeout,
			PollInterval: cfg.Locks.PollInterval,
			Logger:       logg,
		})
		requireResource(ctx, logg, "redis lock", err)
		locker = redisLocker
	}
	locker = lock.Observe(locker, func(key string, waited time.Duration) {
		financeMetrics.ObserveLockWait(lock.Scope(key), waited)
	})

	blobs, err := blob.NewFS(cfg.Storage.AttachmentDir)
	requireResource(ctx, logg, "attachment storage", err)
	pingers.Blobs = blobs

	conn := dbClient.DB()
	formatter := money.NewFormatter(cfg.Finance.Currency)

	labDirectory, err := labs.NewDirectory(labs.NewRepository(conn))
	requireResource(ctx, logg, "laboratory directory", err)
	personDirectory, err := users.NewDirectory(users.NewRepository(conn))
	requireResource(ctx, logg, "person directory", err)

	notificationRepo := notifications.NewRepository(conn)
	sink, err := notifications.NewSink(notificationRepo, logg)
	requireResource(ctx, logg, "notification sink", err)
	var notifier notifications.Notifier = sink
	if cfg.Kafka.Enabled() {
		publisher, err := kafka.NewPublisher(cfg.Kafka)
		requireResource(ctx, logg, "kafka publisher", err)
		defer func() {
			if err := publisher.Close(); err != nil {
				logg.Error(context.Background(), "error closing kafka publisher", err)
			}
		}()
		relay, err := notifications.NewRelay(sink, publisher, logg)
		requireResource(ctx, logg, "notification relay", err)
		notifier = relay
	}
	notificationsService, err := notifications.NewService(notificationRepo)
	requireResource(ctx, logg, "notifications service", err)

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repository: ledger.NewRepository(conn),
		Logger:     logg,
		Metrics:    financeMetrics,
	})
	requireResource(ctx, logg, "ledger service", err)

	salaryService, err := salaries.NewService(salaries.ServiceParams{
		DB:         dbClient,
		Repository: salaries.NewRepository(conn),
		Ledger:     ledgerService,
		Locker:     locker,
		Notifier:   notifier,
		Logger:     logg,
		Metrics:    financeMetrics,
		Money:      formatter,
		PaymentDay: cfg.Finance.SalaryPaymentDay,
	})
	requireResource(ctx, logg, "salary service", err)

	expenseService, err := expenses.NewService(expenses.ServiceParams{
		DB:                  dbClient,
		Repository:          expenses.NewRepository(conn),
		Attachments:         expenses.NewAttachmentRepository(conn),
		Blobs:               blobs,
		Ledger:              ledgerService,
		Locker:              locker,
		Labs:                labDirectory,
		People:              personDirectory,
		Notifier:            notifier,
		Logger:              logg,
		Metrics:             financeMetrics,
		Money:               formatter,
		MaxAttachmentBytes:  cfg.Finance.MaxAttachmentBytes(),
		AttachmentMimeTypes: cfg.Finance.AttachmentMimeTypes,
	})
	requireResource(ctx, logg, "expense service", err)

	addr := cfg.App.ListenAddr()
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"lock_backend": cfg.Locks.Backend,
		"db_driver":    cfg.DB.Driver,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			pingers,
			idempotencyStore,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			labDirectory,
			personDirectory,
			locker,
			ledgerService,
			salaryService,
			expenseService,
			notificationsService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
