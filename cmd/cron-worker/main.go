package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dvalenciar/labelworks-backend/internal/accounts"
	"github.com/dvalenciar/labelworks-backend/internal/billing"
	"github.com/dvalenciar/labelworks-backend/internal/cron"
	"github.com/dvalenciar/labelworks-backend/internal/gateway"
	"github.com/dvalenciar/labelworks-backend/internal/notifications"
	"github.com/dvalenciar/labelworks-backend/internal/usage"
	"github.com/dvalenciar/labelworks-backend/pkg/config"
	"github.com/dvalenciar/labelworks-backend/pkg/db"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
	"github.com/dvalenciar/labelworks-backend/pkg/metrics"
	"github.com/dvalenciar/labelworks-backend/pkg/migrate"
	"github.com/dvalenciar/labelworks-backend/pkg/redis"
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

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	batchMetrics := metrics.NewBatchJobMetrics(prometheus.DefaultRegisterer)

	jobs, err := buildJobs(logg, cfg, dbClient, batchMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cron.SchedulerLockScope(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  batchMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildJobs(logg *logger.Logger, cfg *config.Config, dbClient *db.Client, batchMetrics *metrics.BatchJobMetrics) ([]cron.Job, error) {
	prices, err := cfg.Billing.PlanPrices()
	if err != nil {
		return nil, fmt.Errorf("parse plan price map: %w", err)
	}

	stripeGateway, err := gateway.NewStripeGateway(gateway.StripeGatewayParams{
		APIKey:  cfg.Stripe.APIKey,
		Timeout: cfg.Stripe.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build stripe gateway: %w", err)
	}

	mailer, err := notifications.NewPostmarkMailer(notifications.PostmarkMailerParams{
		ServerToken:  cfg.Postmark.ServerToken,
		AccountToken: cfg.Postmark.AccountToken,
		SenderEmail:  cfg.Postmark.FromEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("build mailer: %w", err)
	}

	return cron.NewJobSet(cron.JobSetParams{
		Logger:           logg,
		DB:               dbClient,
		Accounts:         accounts.NewRepository(dbClient.DB()),
		Billing:          billing.NewRepository(dbClient.DB()),
		Usage:            usage.NewRepository(dbClient.DB()),
		Gateway:          stripeGateway,
		Prices:           gateway.NewPlanPriceResolver(prices),
		Mailer:           mailer,
		Metrics:          batchMetrics,
		WarningThreshold: cfg.Billing.UsageWarningThreshold,
		WarningInterval:  cfg.Billing.UsageWarningInterval,
		BatchLimit:       cfg.Cron.BatchLimit,
	})
}
