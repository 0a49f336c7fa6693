package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
)

type usageWarningJobTestHelper struct {
	job      *usageWarningJob
	accounts *fakeAccountsRepo
	billing  *fakeBillingRepo
	usage    *fakeUsageRepo
	mailer   *fakeMailer
}

func createUsageWarningJobTest(t *testing.T) *usageWarningJobTestHelper {
	t.Helper()
	accountsRepo := &fakeAccountsRepo{}
	billingRepo := &fakeBillingRepo{plans: map[uuid.UUID]*models.MembershipPlan{}}
	usageRepo := &fakeUsageRepo{counters: map[uuid.UUID]*models.UsageCounter{}}
	mailer := &fakeMailer{usageDelivered: true}
	jobIface, err := NewUsageWarningJob(UsageWarningJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		DB:       &fakeTxRunner{},
		Accounts: accountsRepo,
		Billing:  billingRepo,
		Usage:    usageRepo,
		Mailer:   mailer,
	})
	if err != nil {
		t.Fatalf("NewUsageWarningJob: %v", err)
	}
	job := jobIface.(*usageWarningJob)
	job.now = func() time.Time { return time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC) }
	return &usageWarningJobTestHelper{job: job, accounts: accountsRepo, billing: billingRepo, usage: usageRepo, mailer: mailer}
}

func (h *usageWarningJobTestHelper) seed(products, labels int64, mutate func(*models.Account)) models.Account {
	planID := uuid.New()
	h.billing.plans[planID] = &models.MembershipPlan{
		ID:           planID,
		Name:         "Pro",
		ProductLimit: 100,
		LabelLimit:   1000,
	}
	acct := models.Account{
		ID:               uuid.New(),
		Email:            "maker@example.com",
		PaymentStatus:    enums.PaymentStatusPaid,
		MembershipPlanID: &planID,
	}
	if mutate != nil {
		mutate(&acct)
	}
	h.usage.counters[acct.ID] = &models.UsageCounter{
		AccountID:       acct.ID,
		PeriodMonth:     "2026-08",
		ProductsCreated: products,
		LabelsCreated:   labels,
	}
	h.accounts.warningCandidates = append(h.accounts.warningCandidates, acct)
	return acct
}

func TestUsageWarningJob_WarnsAtThreshold(t *testing.T) {
	helper := createUsageWarningJobTest(t)
	acct := helper.seed(85, 100, nil)

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(helper.mailer.usageWarnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(helper.mailer.usageWarnings))
	}
	warning := helper.mailer.usageWarnings[0]
	if warning.accountID != acct.ID || warning.resource != enums.UsageResourceProducts || warning.pct != 85 {
		t.Fatalf("unexpected warning %+v", warning)
	}
	if len(helper.accounts.updated) != 1 {
		t.Fatalf("expected warning timestamp persisted")
	}
	if helper.accounts.updated[0].LastUsageWarningSentAt == nil {
		t.Fatal("expected last_usage_warning_sent_at set")
	}
}

func TestUsageWarningJob_BelowThresholdStaysQuiet(t *testing.T) {
	helper := createUsageWarningJobTest(t)
	helper.seed(79, 100, nil)

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(helper.mailer.usageWarnings) != 0 {
		t.Fatalf("expected no warnings, got %d", len(helper.mailer.usageWarnings))
	}
}

func TestUsageWarningJob_SharedTimestampThrottlesBothResources(t *testing.T) {
	helper := createUsageWarningJobTest(t)
	// Both resources over threshold: the product warning lands first and its
	// timestamp suppresses the label warning on the same pass.
	helper.seed(90, 900, nil)

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(helper.mailer.usageWarnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(helper.mailer.usageWarnings))
	}
	if helper.mailer.usageWarnings[0].resource != enums.UsageResourceProducts {
		t.Fatalf("expected products warned first, got %s", helper.mailer.usageWarnings[0].resource)
	}
}

func TestUsageWarningJob_RecentWarningSuppressesSend(t *testing.T) {
	helper := createUsageWarningJobTest(t)
	recent := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)
	helper.seed(90, 0, func(a *models.Account) {
		a.LastUsageWarningSentAt = &recent
	})

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(helper.mailer.usageWarnings) != 0 {
		t.Fatalf("expected throttled warning, got %d", len(helper.mailer.usageWarnings))
	}
}

func TestUsageWarningJob_StaleWarningAllowsResend(t *testing.T) {
	helper := createUsageWarningJobTest(t)
	stale := time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC)
	helper.seed(90, 0, func(a *models.Account) {
		a.LastUsageWarningSentAt = &stale
	})

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(helper.mailer.usageWarnings) != 1 {
		t.Fatalf("expected warning after throttle elapsed, got %d", len(helper.mailer.usageWarnings))
	}
}

func TestUsageWarningJob_UndeliveredSendKeepsTimestamp(t *testing.T) {
	helper := createUsageWarningJobTest(t)
	helper.seed(90, 0, nil)
	helper.mailer.usageDelivered = false
	helper.mailer.usageErr = errors.New("suppressed recipient")

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Attempted, but not delivered: timestamp must stay clear so the next
	// pass retries.
	if len(helper.mailer.usageWarnings) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(helper.mailer.usageWarnings))
	}
	if len(helper.accounts.updated) != 0 {
		t.Fatalf("expected no timestamp update, got %d", len(helper.accounts.updated))
	}
}

func TestUsageWarningJob_UnlimitedResourceSkipped(t *testing.T) {
	helper := createUsageWarningJobTest(t)
	acct := helper.seed(1000000, 0, nil)
	helper.billing.plans[*acct.MembershipPlanID].ProductLimit = 0

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(helper.mailer.usageWarnings) != 0 {
		t.Fatalf("expected unlimited plan to be skipped, got %d warnings", len(helper.mailer.usageWarnings))
	}
}

func TestUsageWarningJob_NoCounterRowMeansNoUsage(t *testing.T) {
	helper := createUsageWarningJobTest(t)
	acct := helper.seed(90, 0, nil)
	delete(helper.usage.counters, acct.ID)

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(helper.mailer.usageWarnings) != 0 {
		t.Fatalf("expected no warnings without a counter row, got %d", len(helper.mailer.usageWarnings))
	}
}
