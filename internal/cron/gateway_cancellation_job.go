package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dvalenciar/labelworks-backend/internal/accounts"
	"github.com/dvalenciar/labelworks-backend/internal/gateway"
	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	pkgerrors "github.com/dvalenciar/labelworks-backend/pkg/errors"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
	"github.com/dvalenciar/labelworks-backend/pkg/metrics"
)

// GatewayCancellationJobParams configures the gateway cancellation job.
type GatewayCancellationJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Accounts accounts.Repository
	Gateway  gateway.PaymentGateway
	Metrics  *metrics.BatchJobMetrics
	Limit    int
}

// NewGatewayCancellationJob constructs the job that cancels due subscriptions
// at the payment gateway. Local state advances even when the remote cancel
// fails; the provider-side object is reconciled manually in that case.
func NewGatewayCancellationJob(params GatewayCancellationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &gatewayCancellationJob{
		logg:     params.Logger,
		db:       params.DB,
		accounts: params.Accounts,
		gateway:  params.Gateway,
		metrics:  params.Metrics,
		limit:    params.Limit,
		now:      time.Now,
	}, nil
}

type gatewayCancellationJob struct {
	logg     *logger.Logger
	db       txRunner
	accounts accounts.Repository
	gateway  gateway.PaymentGateway
	metrics  *metrics.BatchJobMetrics
	limit    int
	now      func() time.Time
}

func (j *gatewayCancellationJob) Name() string { return "process-gateway-cancellations" }

// Run returns an error only when candidate selection itself fails. An account
// whose local completion could not commit stays confirmed and due, so it is
// re-selected next pass; such failures are logged and counted, never returned.
func (j *gatewayCancellationJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.accounts.ListGatewayCancellationsDue(ctx, now, j.limit)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list gateway cancellations due")
	}
	if len(due) == 0 {
		j.logg.Info(ctx, "no gateway cancellations due")
		return nil
	}

	completed, failed := 0, 0
	for i := range due {
		acct := due[i]
		acctCtx := j.logg.WithAccountID(ctx, acct.ID.String())
		if err := j.cancelAccount(acctCtx, &acct, now); err != nil {
			failed++
			j.logg.Error(acctCtx, "cancellation completion failed", err)
			continue
		}
		completed++
	}

	j.metrics.AddAccountsProcessed(j.Name(), completed)
	j.metrics.AddAccountsFailed(j.Name(), failed)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":       len(due),
		"completed": completed,
		"failed":    failed,
	}), "gateway cancellation pass complete")
	return nil
}

func (j *gatewayCancellationJob) cancelAccount(ctx context.Context, acct *models.Account, now time.Time) error {
	if acct.StripeSubscriptionID != nil {
		if err := j.gateway.CancelSubscription(ctx, *acct.StripeSubscriptionID); err != nil {
			j.logg.Error(j.logg.WithField(ctx, "subscription_ref", *acct.StripeSubscriptionID),
				"gateway cancel failed; completing cancellation locally", err)
		}
	}

	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := accounts.CompleteGatewayCancellation(acct, now); err != nil {
			return err
		}
		return j.accounts.WithTx(tx).Update(ctx, acct)
	})
}
