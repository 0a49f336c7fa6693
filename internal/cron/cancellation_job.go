package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dvalenciar/labelworks-backend/internal/accounts"
	"github.com/dvalenciar/labelworks-backend/internal/notifications"
	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
	"github.com/dvalenciar/labelworks-backend/pkg/metrics"
)

const reminderWindow = 24 * time.Hour

// CancellationJobParams configures the cancellation processing job.
type CancellationJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Accounts accounts.Repository
	Mailer   notifications.Mailer
	Metrics  *metrics.BatchJobMetrics
	Limit    int
}

// NewCancellationJob constructs the cancellation processing job. It finalizes
// confirmed cancellations whose cooling-off window elapsed and reminds
// accounts whose window is about to.
func NewCancellationJob(params CancellationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	return &cancellationJob{
		logg:     params.Logger,
		db:       params.DB,
		accounts: params.Accounts,
		mailer:   params.Mailer,
		metrics:  params.Metrics,
		limit:    params.Limit,
		now:      time.Now,
	}, nil
}

type cancellationJob struct {
	logg     *logger.Logger
	db       txRunner
	accounts accounts.Repository
	mailer   notifications.Mailer
	metrics  *metrics.BatchJobMetrics
	limit    int
	now      func() time.Time
}

func (j *cancellationJob) Name() string { return "process-cancellations" }

func (j *cancellationJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.finalizeDue(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.remindUpcoming(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *cancellationJob) finalizeDue(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.accounts.ListCancellationsDue(ctx, now, j.limit)
	if err != nil {
		return fmt.Errorf("list cancellations due: %w", err)
	}

	var errs []error
	processed, failed := 0, 0
	for i := range due {
		acct := due[i]
		acctCtx := j.logg.WithAccountID(ctx, acct.ID.String())
		if err := j.finalizeAccount(acctCtx, &acct, now); err != nil {
			failed++
			errs = append(errs, fmt.Errorf("account %s: %w", acct.ID, err))
			continue
		}
		processed++
	}

	j.metrics.AddAccountsProcessed(j.Name(), processed)
	j.metrics.AddAccountsFailed(j.Name(), failed)
	if len(due) > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"due":       len(due),
			"processed": processed,
			"failed":    failed,
		}), "cancellation pass complete")
	}
	return multierr.Combine(errs...)
}

func (j *cancellationJob) finalizeAccount(ctx context.Context, acct *models.Account, now time.Time) error {
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := accounts.FinalizeCancellation(acct, now); err != nil {
			return err
		}
		return j.accounts.WithTx(tx).Update(ctx, acct)
	})
	if err != nil {
		return err
	}

	// Delivery is best-effort; the cancellation already committed.
	if err := j.mailer.SendCancellationProcessed(ctx, acct); err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "send_error", err.Error()), "cancellation confirmation email failed")
	}
	return nil
}

// remindUpcoming emails accounts whose cancellation takes effect within the
// next day. It changes no state, so a rerun inside the window resends at most
// one reminder per scheduler cycle.
func (j *cancellationJob) remindUpcoming(ctx context.Context) error {
	now := j.now().UTC()
	upcoming, err := j.accounts.ListUpcomingCancellations(ctx, now, j.limit)
	if err != nil {
		return fmt.Errorf("list upcoming cancellations: %w", err)
	}

	for i := range upcoming {
		acct := upcoming[i]
		if acct.CancellationEffectiveAt == nil {
			continue
		}
		remaining := acct.CancellationEffectiveAt.Sub(now)
		if remaining > reminderWindow {
			continue
		}
		acctCtx := j.logg.WithFields(ctx, map[string]any{
			"account_id":   acct.ID.String(),
			"effective_at": acct.CancellationEffectiveAt.UTC(),
		})
		j.logg.Info(acctCtx, "cancellation takes effect within a day")
		if err := j.mailer.SendCancellationReminder(acctCtx, &acct, *acct.CancellationEffectiveAt); err != nil {
			j.logg.Warn(j.logg.WithField(acctCtx, "send_error", err.Error()), "cancellation reminder email failed")
		}
	}
	return nil
}
