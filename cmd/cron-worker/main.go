package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/labfunds-backend/internal/cron"
	"github.com/angelmondragon/labfunds-backend/internal/labs"
	"github.com/angelmondragon/labfunds-backend/internal/notifications"
	"github.com/angelmondragon/labfunds-backend/internal/salaries"
	"github.com/angelmondragon/labfunds-backend/pkg/config"
	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/events/kafka"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/metrics"
	"github.com/angelmondragon/labfunds-backend/pkg/migrate"
	"github.com/angelmondragon/labfunds-backend/pkg/money"
	"github.com/angelmondragon/labfunds-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      logger.ParseFormat(cfg.App.LogFormat),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var cycleLock cron.Lock = cron.NewLocalLock()
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisLock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(ctx, "failed to create cron lock", err)
			os.Exit(1)
		}
		cycleLock = redisLock
	}

	conn := dbClient.DB()
	notificationRepo := notifications.NewRepository(conn)
	sink, err := notifications.NewSink(notificationRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notification sink", err)
		os.Exit(1)
	}
	var notifier notifications.Notifier = sink
	if cfg.Kafka.Enabled() {
		publisher, err := kafka.NewPublisher(cfg.Kafka)
		if err != nil {
			logg.Error(ctx, "failed to create kafka publisher", err)
			os.Exit(1)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logg.Error(context.Background(), "error closing kafka publisher", err)
			}
		}()
		relay, err := notifications.NewRelay(sink, publisher, logg)
		if err != nil {
			logg.Error(ctx, "failed to create notification relay", err)
			os.Exit(1)
		}
		notifier = relay
	}

	labDirectory, err := labs.NewDirectory(labs.NewRepository(conn))
	if err != nil {
		logg.Error(ctx, "failed to create laboratory directory", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Notifications: notificationRepo,
		RetentionDays: cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notification cleanup job", err)
		os.Exit(1)
	}
	salaryDueJob, err := cron.NewSalaryDueJob(cron.SalaryDueJobParams{
		Logger:   logg,
		Salaries: salaries.NewRepository(conn),
		Labs:     labDirectory,
		Notifier: notifier,
		Money:    money.NewFormatter(cfg.Finance.Currency),
	})
	if err != nil {
		logg.Error(ctx, "failed to create salary due job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{salaryDueJob, cleanupJob},
		Lock:     cycleLock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}
