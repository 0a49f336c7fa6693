package cron

import (
	"time"

	"github.com/dvalenciar/labelworks-backend/internal/accounts"
	"github.com/dvalenciar/labelworks-backend/internal/billing"
	"github.com/dvalenciar/labelworks-backend/internal/gateway"
	"github.com/dvalenciar/labelworks-backend/internal/notifications"
	"github.com/dvalenciar/labelworks-backend/internal/usage"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
	"github.com/dvalenciar/labelworks-backend/pkg/metrics"
)

// JobSetParams groups the dependencies shared by the standard job set.
type JobSetParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Accounts accounts.Repository
	Billing  billing.Repository
	Usage    usage.Repository
	Gateway  gateway.PaymentGateway
	Prices   priceResolver
	Mailer   notifications.Mailer
	Metrics  *metrics.BatchJobMetrics

	WarningThreshold int
	WarningInterval  time.Duration
	BatchLimit       int
}

// NewJobSet builds every lifecycle job in its scheduled order: renewals,
// local cancellations, gateway cancellations, deletions, usage warnings.
func NewJobSet(params JobSetParams) ([]Job, error) {
	renewal, err := NewRenewalJob(RenewalJobParams{
		Logger:   params.Logger,
		DB:       params.DB,
		Accounts: params.Accounts,
		Billing:  params.Billing,
		Gateway:  params.Gateway,
		Prices:   params.Prices,
		Metrics:  params.Metrics,
		Limit:    params.BatchLimit,
	})
	if err != nil {
		return nil, err
	}
	cancellation, err := NewCancellationJob(CancellationJobParams{
		Logger:   params.Logger,
		DB:       params.DB,
		Accounts: params.Accounts,
		Mailer:   params.Mailer,
		Metrics:  params.Metrics,
		Limit:    params.BatchLimit,
	})
	if err != nil {
		return nil, err
	}
	gatewayCancellation, err := NewGatewayCancellationJob(GatewayCancellationJobParams{
		Logger:   params.Logger,
		DB:       params.DB,
		Accounts: params.Accounts,
		Gateway:  params.Gateway,
		Metrics:  params.Metrics,
		Limit:    params.BatchLimit,
	})
	if err != nil {
		return nil, err
	}
	deletion, err := NewDeletionJob(DeletionJobParams{
		Logger:   params.Logger,
		DB:       params.DB,
		Accounts: params.Accounts,
		Mailer:   params.Mailer,
		Metrics:  params.Metrics,
		Limit:    params.BatchLimit,
	})
	if err != nil {
		return nil, err
	}
	usageWarning, err := NewUsageWarningJob(UsageWarningJobParams{
		Logger:    params.Logger,
		DB:        params.DB,
		Accounts:  params.Accounts,
		Billing:   params.Billing,
		Usage:     params.Usage,
		Mailer:    params.Mailer,
		Metrics:   params.Metrics,
		Threshold: params.WarningThreshold,
		Interval:  params.WarningInterval,
		Limit:     params.BatchLimit,
	})
	if err != nil {
		return nil, err
	}
	return []Job{renewal, cancellation, gatewayCancellation, deletion, usageWarning}, nil
}
