package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dvalenciar/labelworks-backend/internal/accounts"
	"github.com/dvalenciar/labelworks-backend/internal/billing"
	"github.com/dvalenciar/labelworks-backend/internal/gateway"
	"github.com/dvalenciar/labelworks-backend/pkg/db"
	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
	"github.com/dvalenciar/labelworks-backend/pkg/metrics"
)

// txRunner runs a function inside one database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// priceResolver maps a plan name to its gateway price ref.
type priceResolver interface {
	Resolve(planName string) (string, bool)
}

// RenewalJobParams configures the subscription renewal job.
type RenewalJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Accounts accounts.Repository
	Billing  billing.Repository
	Gateway  gateway.PaymentGateway
	Prices   priceResolver
	Metrics  *metrics.BatchJobMetrics
	Limit    int
}

// NewRenewalJob constructs the subscription renewal job.
func NewRenewalJob(params RenewalJobParams) (Job, error) {
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
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Prices == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	return &renewalJob{
		logg:     params.Logger,
		db:       params.DB,
		accounts: params.Accounts,
		billing:  params.Billing,
		gateway:  params.Gateway,
		prices:   params.Prices,
		metrics:  params.Metrics,
		limit:    params.Limit,
		now:      time.Now,
	}, nil
}

type renewalJob struct {
	logg     *logger.Logger
	db       txRunner
	accounts accounts.Repository
	billing  billing.Repository
	gateway  gateway.PaymentGateway
	prices   priceResolver
	metrics  *metrics.BatchJobMetrics
	limit    int
	now      func() time.Time
}

func (j *renewalJob) Name() string { return "renew-subscriptions" }

func (j *renewalJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	candidates, err := j.accounts.ListRenewalCandidates(ctx, now, j.limit)
	if err != nil {
		return fmt.Errorf("list renewal candidates: %w", err)
	}
	if len(candidates) == 0 {
		j.logg.Info(ctx, "no subscriptions due for renewal")
		return nil
	}

	var errs []error
	renewed, failed := 0, 0
	for i := range candidates {
		acct := candidates[i]
		acctCtx := j.logg.WithAccountID(ctx, acct.ID.String())
		outcome, err := j.renewAccount(acctCtx, &acct, now)
		if err != nil {
			failed++
			errs = append(errs, fmt.Errorf("account %s: %w", acct.ID, err))
			continue
		}
		switch outcome {
		case renewalRenewed:
			renewed++
		default:
			failed++
		}
	}

	j.metrics.AddAccountsProcessed(j.Name(), renewed)
	j.metrics.AddAccountsFailed(j.Name(), failed)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"renewed":    renewed,
		"failed":     failed,
	}), "renewal pass complete")
	return multierr.Combine(errs...)
}

type renewalOutcome int

const (
	renewalSkipped renewalOutcome = iota
	renewalRenewed
	renewalExpired
)

// renewAccount charges one account and commits the outcome. The gateway is
// called at most once; local precondition failures never reach it.
func (j *renewalJob) renewAccount(ctx context.Context, acct *models.Account, now time.Time) (renewalOutcome, error) {
	plan, method, priceRef, ok, err := j.checkPreconditions(ctx, acct, now)
	if err != nil {
		return renewalSkipped, err
	}
	if !ok {
		return renewalSkipped, nil
	}

	result, gwErr := j.gateway.RenewSubscription(ctx, *acct.StripeCustomerID, *acct.StripeSubscriptionID, priceRef)
	if gwErr != nil {
		j.logg.Error(ctx, "gateway renewal failed; expiring subscription", gwErr)
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			accounts.ApplyRenewalFailure(acct, now)
			return j.accounts.WithTx(tx).Update(ctx, acct)
		})
		return renewalExpired, err
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		accts := j.accounts.WithTx(tx)
		bills := j.billing.WithTx(tx)

		accounts.ApplyRenewal(acct, now, result.SubscriptionRef)
		if err := accts.Update(ctx, acct); err != nil {
			return fmt.Errorf("update account: %w", err)
		}

		invoice, err := billing.NextInvoiceNumber(ctx, bills, now)
		if err != nil {
			return err
		}
		record, err := newRenewalRecord(acct, plan, method, invoice, now)
		if err != nil {
			return err
		}
		if err := bills.CreateBillingRecord(ctx, record); err != nil {
			return fmt.Errorf("append billing record: %w", err)
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "invoice_number") {
			// A concurrent pass took this month's next invoice number. The
			// whole tx rolled back, so the account stays due and retries.
			j.logg.Warn(ctx, "invoice number collision; renewal deferred to next pass")
			return renewalSkipped, nil
		}
		return renewalSkipped, err
	}
	return renewalRenewed, nil
}

// checkPreconditions loads the plan and card and resolves the price ref.
// A false result is a local failure: logged, counted, and no gateway call.
func (j *renewalJob) checkPreconditions(ctx context.Context, acct *models.Account, now time.Time) (*models.MembershipPlan, *models.PaymentMethod, string, bool, error) {
	if acct.MembershipPlanID == nil {
		j.logg.Warn(ctx, "renewal skipped: no plan assigned")
		return nil, nil, "", false, nil
	}
	plan, err := j.billing.FindPlanByID(ctx, *acct.MembershipPlanID)
	if err != nil {
		return nil, nil, "", false, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		j.logg.Warn(ctx, "renewal skipped: plan no longer exists")
		return nil, nil, "", false, nil
	}

	method, err := j.billing.FindDefaultPaymentMethod(ctx, acct.ID)
	if err != nil {
		return nil, nil, "", false, fmt.Errorf("load payment method: %w", err)
	}
	if method == nil {
		j.logg.Warn(ctx, "renewal skipped: no default payment method on file")
		return nil, nil, "", false, nil
	}
	if method.IsExpired(now) {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"expiry_month": method.ExpiryMonth,
			"expiry_year":  method.ExpiryYear,
		}), "renewal skipped: card expired")
		return nil, nil, "", false, nil
	}

	priceRef, mapped := j.prices.Resolve(plan.Name)
	if !mapped {
		j.logg.Warn(j.logg.WithField(ctx, "plan", plan.Name), "renewal skipped: plan has no gateway price mapping")
		return nil, nil, "", false, nil
	}
	return plan, method, priceRef, true, nil
}

func newRenewalRecord(acct *models.Account, plan *models.MembershipPlan, method *models.PaymentMethod, invoice string, now time.Time) (*models.BillingRecord, error) {
	metadata, err := json.Marshal(map[string]any{"auto_renewal": true})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	description := fmt.Sprintf("Auto-renewal for %s plan", plan.Name)
	paymentDate := now
	return &models.BillingRecord{
		AccountID:          acct.ID,
		MembershipPlanID:   plan.ID,
		PaymentMethodID:    &method.ID,
		InvoiceNumber:      invoice,
		Amount:             plan.Price,
		Currency:           plan.CurrencyCode,
		Status:             enums.BillingRecordStatusPaid,
		PaymentDate:        &paymentDate,
		BillingPeriodStart: now,
		BillingPeriodEnd:   now.AddDate(0, 1, 0),
		Description:        &description,
		Metadata:           metadata,
	}, nil
}
