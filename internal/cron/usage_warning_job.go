package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dvalenciar/labelworks-backend/internal/accounts"
	"github.com/dvalenciar/labelworks-backend/internal/billing"
	"github.com/dvalenciar/labelworks-backend/internal/notifications"
	"github.com/dvalenciar/labelworks-backend/internal/usage"
	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
	"github.com/dvalenciar/labelworks-backend/pkg/metrics"
)

const (
	defaultWarningThreshold = 80
	defaultWarningInterval  = 7 * 24 * time.Hour
)

// warnedResources is checked in a fixed order so throttling behaves the same
// on every pass.
var warnedResources = []enums.UsageResource{
	enums.UsageResourceProducts,
	enums.UsageResourceLabels,
}

// UsageWarningJobParams configures the usage warning job.
type UsageWarningJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Accounts accounts.Repository
	Billing  billing.Repository
	Usage    usage.Repository
	Mailer   notifications.Mailer
	Metrics  *metrics.BatchJobMetrics
	// Threshold is the warning percentage, defaulting to 80.
	Threshold int
	// Interval is the minimum gap between warnings to one account. The gap
	// is shared across resource types: warning about products throttles
	// label warnings too.
	Interval time.Duration
	Limit    int
}

// NewUsageWarningJob constructs the job that warns accounts approaching
// their plan limits.
func NewUsageWarningJob(params UsageWarningJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Billing == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if params.Usage == nil {
		return nil, fmt.Errorf("usage repository required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Threshold <= 0 {
		params.Threshold = defaultWarningThreshold
	}
	if params.Interval <= 0 {
		params.Interval = defaultWarningInterval
	}
	return &usageWarningJob{
		logg:      params.Logger,
		db:        params.DB,
		accounts:  params.Accounts,
		billing:   params.Billing,
		usage:     params.Usage,
		mailer:    params.Mailer,
		metrics:   params.Metrics,
		threshold: params.Threshold,
		interval:  params.Interval,
		limit:     params.Limit,
		now:       time.Now,
	}, nil
}

type usageWarningJob struct {
	logg      *logger.Logger
	db        txRunner
	accounts  accounts.Repository
	billing   billing.Repository
	usage     usage.Repository
	mailer    notifications.Mailer
	metrics   *metrics.BatchJobMetrics
	threshold int
	interval  time.Duration
	limit     int
	now       func() time.Time
}

func (j *usageWarningJob) Name() string { return "check-usage-warnings" }

func (j *usageWarningJob) Run(ctx context.Context) error {
	now := j.now().UTC()

	var errs []error
	scanned, warned := 0, 0
	after := uuid.Nil
	for {
		page, err := j.accounts.ListUsageWarningCandidates(ctx, after, j.limit)
		if err != nil {
			errs = append(errs, fmt.Errorf("list usage warning candidates: %w", err))
			break
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			acct := page[i]
			acctCtx := j.logg.WithAccountID(ctx, acct.ID.String())
			sent, err := j.checkAccount(acctCtx, &acct, now)
			if err != nil {
				errs = append(errs, fmt.Errorf("account %s: %w", acct.ID, err))
				continue
			}
			if sent {
				warned++
			}
		}
		scanned += len(page)
		after = page[len(page)-1].ID
	}

	j.metrics.AddAccountsProcessed(j.Name(), warned)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"scanned": scanned,
		"warned":  warned,
	}), "usage warning pass complete")
	return multierr.Combine(errs...)
}

func (j *usageWarningJob) checkAccount(ctx context.Context, acct *models.Account, now time.Time) (bool, error) {
	if acct.MembershipPlanID == nil {
		return false, nil
	}
	plan, err := j.billing.FindPlanByID(ctx, *acct.MembershipPlanID)
	if err != nil {
		return false, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return false, nil
	}

	counter, err := j.usage.Find(ctx, acct.ID, models.PeriodKey(now))
	if err != nil {
		return false, fmt.Errorf("load usage: %w", err)
	}
	if counter == nil {
		return false, nil
	}

	sentAny := false
	for _, resource := range warnedResources {
		limit := plan.LimitFor(resource)
		if limit <= 0 {
			continue
		}
		count := counterFor(counter, resource)
		pct := usage.Percentage(count, limit)
		if pct < j.threshold {
			continue
		}
		if !j.throttleElapsed(acct, now) {
			continue
		}

		resCtx := j.logg.WithFields(ctx, map[string]any{
			"resource": resource.String(),
			"pct":      pct,
			"count":    count,
			"limit":    limit,
		})
		delivered, err := j.mailer.SendUsageWarning(resCtx, acct, resource, pct, count, limit)
		if err != nil {
			j.logg.Warn(j.logg.WithField(resCtx, "send_error", err.Error()), "usage warning email failed")
		}
		if !delivered {
			continue
		}

		sent := now
		acct.LastUsageWarningSentAt = &sent
		err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.accounts.WithTx(tx).Update(ctx, acct)
		})
		if err != nil {
			return sentAny, fmt.Errorf("record warning timestamp: %w", err)
		}
		j.logg.Info(resCtx, "usage warning sent")
		sentAny = true
	}
	return sentAny, nil
}

func (j *usageWarningJob) throttleElapsed(acct *models.Account, now time.Time) bool {
	if acct.LastUsageWarningSentAt == nil {
		return true
	}
	return now.Sub(*acct.LastUsageWarningSentAt) >= j.interval
}

func counterFor(counter *models.UsageCounter, resource enums.UsageResource) int64 {
	switch resource {
	case enums.UsageResourceLabels:
		return counter.LabelsCreated
	default:
		return counter.ProductsCreated
	}
}
