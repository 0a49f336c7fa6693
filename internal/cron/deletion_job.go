package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dvalenciar/labelworks-backend/internal/accounts"
	"github.com/dvalenciar/labelworks-backend/internal/notifications"
	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	pkgerrors "github.com/dvalenciar/labelworks-backend/pkg/errors"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
	"github.com/dvalenciar/labelworks-backend/pkg/metrics"
)

// DeletionJobParams configures the scheduled account deletion job.
type DeletionJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Accounts accounts.Repository
	Mailer   notifications.Mailer
	Metrics  *metrics.BatchJobMetrics
	Limit    int
}

// NewDeletionJob constructs the job that permanently removes accounts whose
// scheduled deletion time has passed.
func NewDeletionJob(params DeletionJobParams) (Job, error) {
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
	return &deletionJob{
		logg:     params.Logger,
		db:       params.DB,
		accounts: params.Accounts,
		mailer:   params.Mailer,
		metrics:  params.Metrics,
		limit:    params.Limit,
		now:      time.Now,
	}, nil
}

type deletionJob struct {
	logg     *logger.Logger
	db       txRunner
	accounts accounts.Repository
	mailer   notifications.Mailer
	metrics  *metrics.BatchJobMetrics
	limit    int
	now      func() time.Time
}

func (j *deletionJob) Name() string { return "process-deletions" }

// Run returns an error only when candidate selection itself fails. A failed
// delete leaves the row in place to be re-selected next pass, so per-account
// failures are logged and counted but never abort the run.
func (j *deletionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.accounts.ListDeletionsDue(ctx, now, j.limit)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deletions due")
	}
	if len(due) == 0 {
		j.logg.Info(ctx, "no account deletions due")
		return nil
	}

	deleted, failed := 0, 0
	for i := range due {
		acct := due[i]
		acctCtx := j.logg.WithAccountID(ctx, acct.ID.String())
		if err := j.deleteAccount(acctCtx, &acct); err != nil {
			// The row survives and is re-selected on the next pass.
			failed++
			j.logg.Error(acctCtx, "account deletion failed", err)
			continue
		}
		deleted++
	}

	j.metrics.AddAccountsProcessed(j.Name(), deleted)
	j.metrics.AddAccountsFailed(j.Name(), failed)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":     len(due),
		"deleted": deleted,
		"failed":  failed,
	}), "deletion pass complete")
	return nil
}

// deleteAccount notifies, revokes credentials, then removes the row. The
// notice is best-effort; revocation and removal commit together.
func (j *deletionJob) deleteAccount(ctx context.Context, acct *models.Account) error {
	scheduledAt := j.now().UTC()
	if acct.DeletionScheduledAt != nil {
		scheduledAt = *acct.DeletionScheduledAt
	}
	if err := j.mailer.SendFinalDeletionNotice(ctx, acct, scheduledAt); err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "send_error", err.Error()), "final deletion notice failed")
	}

	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		accts := j.accounts.WithTx(tx)
		revoked, err := accts.RevokeAccessTokens(ctx, acct.ID)
		if err != nil {
			return fmt.Errorf("revoke access tokens: %w", err)
		}
		if revoked > 0 {
			j.logg.Info(j.logg.WithField(ctx, "revoked_tokens", revoked), "access tokens revoked")
		}
		if err := accts.Delete(ctx, acct.ID); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		return nil
	})
}
