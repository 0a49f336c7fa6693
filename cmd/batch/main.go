// Command batch runs one lifecycle job to completion and exits. It exists for
// external schedulers (systemd timers, Kubernetes CronJobs) that want one
// process per run instead of the long-lived cron-worker loop.
package main

import (
	"context"
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
	pkgerrors "github.com/dvalenciar/labelworks-backend/pkg/errors"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
	"github.com/dvalenciar/labelworks-backend/pkg/metrics"
	"github.com/dvalenciar/labelworks-backend/pkg/redis"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// strictJobs fail the process when the run returns an error. Jobs only return
// top-level errors (candidate selection failed, store unreachable); per-account
// failures are reported through logs and metrics in every job and never change
// the exit code, so a partial pass cannot wedge the scheduler that invoked it.
var strictJobs = map[string]bool{
	"process-gateway-cancellations": true,
	"process-deletions":             true,
}

func main() {
	os.Exit(run())
}

func run() int {
	logg := logger.New(logger.Options{ServiceName: "batch"})

	if len(os.Args) != 2 {
		printUsage(os.Stderr)
		return exitUsage
	}
	jobName := os.Args[1]

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		return exitFailure
	}

	cfg.Service.Kind = "batch"

	logg = logger.New(logger.Options{
		ServiceName: "batch",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		return exitFailure
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		return exitFailure
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	batchMetrics := metrics.NewBatchJobMetrics(prometheus.DefaultRegisterer)
	jobs, err := buildJobs(logg, cfg, dbClient, batchMetrics)
	if err != nil {
		logg.Error(ctx, "failed to build jobs", err)
		return exitFailure
	}
	registry := cron.NewRegistry(jobs...)

	job := registry.Find(jobName)
	if job == nil {
		fmt.Fprintf(os.Stderr, "unknown job %q\n", jobName)
		printUsage(os.Stderr)
		return exitUsage
	}

	// One-shot runs contend on the same lock as the worker loop, so a batch
	// invocation can never select the same candidates as an in-flight cycle.
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cron.SchedulerLockScope(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(ctx, "failed to create scheduler lock", err)
		return exitFailure
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:  logg,
		Lock:    lock,
		Metrics: batchMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create runner", err)
		return exitFailure
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	locked, err := lock.Acquire(ctx)
	if err != nil {
		logg.Error(ctx, "failed to acquire scheduler lock", err)
		return exitFailure
	}
	if !locked {
		logg.Warn(ctx, "another scheduler run holds the lock; skipping")
		return exitOK
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logg.Error(ctx, "failed to release scheduler lock", err)
		}
	}()

	if err := service.RunJob(ctx, job); err != nil && strictJobs[jobName] {
		logg.Error(logg.WithField(ctx, "retryable", pkgerrors.IsRetryable(err)), "job aborted", err)
		return exitFailure
	}
	return exitOK
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

func printUsage(w *os.File) {
	fmt.Fprintln(w, "usage: batch <job>")
	fmt.Fprintln(w, "jobs:")
	for _, name := range []string{
		"renew-subscriptions",
		"process-cancellations",
		"process-gateway-cancellations",
		"process-deletions",
		"check-usage-warnings",
	} {
		fmt.Fprintf(w, "  %s\n", name)
	}
}
