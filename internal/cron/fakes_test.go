package cron

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvalenciar/labelworks-backend/internal/accounts"
	"github.com/dvalenciar/labelworks-backend/internal/billing"
	"github.com/dvalenciar/labelworks-backend/internal/gateway"
	"github.com/dvalenciar/labelworks-backend/internal/usage"
	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

type fakeTxRunner struct {
	calls int
	err   error
}

func (f *fakeTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type fakeAccountsRepo struct {
	renewalCandidates    []models.Account
	cancellationsDue     []models.Account
	gatewayDue           []models.Account
	upcoming             []models.Account
	deletionsDue         []models.Account
	warningCandidates    []models.Account
	listErr              error
	updateErr            error
	deleteErr            error
	revokeErr            error
	revokeCount          int64
	updated              []models.Account
	deleted              []uuid.UUID
	revokedFor           []uuid.UUID
	warningPagesReturned int
}

func (f *fakeAccountsRepo) WithTx(*gorm.DB) accounts.Repository { return f }

func (f *fakeAccountsRepo) Create(_ context.Context, acct *models.Account) error { return nil }

func (f *fakeAccountsRepo) Update(_ context.Context, acct *models.Account) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, *acct)
	return nil
}

func (f *fakeAccountsRepo) Delete(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAccountsRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	return nil, nil
}

func (f *fakeAccountsRepo) ListRenewalCandidates(_ context.Context, _ time.Time, _ int) ([]models.Account, error) {
	return f.renewalCandidates, f.listErr
}

func (f *fakeAccountsRepo) ListCancellationsDue(_ context.Context, _ time.Time, _ int) ([]models.Account, error) {
	return f.cancellationsDue, f.listErr
}

func (f *fakeAccountsRepo) ListGatewayCancellationsDue(_ context.Context, _ time.Time, _ int) ([]models.Account, error) {
	return f.gatewayDue, f.listErr
}

func (f *fakeAccountsRepo) ListUpcomingCancellations(_ context.Context, _ time.Time, _ int) ([]models.Account, error) {
	return f.upcoming, f.listErr
}

func (f *fakeAccountsRepo) ListDeletionsDue(_ context.Context, _ time.Time, _ int) ([]models.Account, error) {
	return f.deletionsDue, f.listErr
}

func (f *fakeAccountsRepo) ListUsageWarningCandidates(_ context.Context, afterID uuid.UUID, _ int) ([]models.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	// Single page, then done.
	if f.warningPagesReturned > 0 || afterID != uuid.Nil {
		return nil, nil
	}
	f.warningPagesReturned++
	return f.warningCandidates, nil
}

func (f *fakeAccountsRepo) RevokeAccessTokens(_ context.Context, accountID uuid.UUID) (int64, error) {
	if f.revokeErr != nil {
		return 0, f.revokeErr
	}
	f.revokedFor = append(f.revokedFor, accountID)
	return f.revokeCount, nil
}

type fakeBillingRepo struct {
	plans         map[uuid.UUID]*models.MembershipPlan
	defaultMethod *models.PaymentMethod
	planErr       error
	methodErr     error
	recordErr     error
	monthCount    int64
	records       []models.BillingRecord
}

func (f *fakeBillingRepo) WithTx(*gorm.DB) billing.Repository { return f }

func (f *fakeBillingRepo) CreatePlan(_ context.Context, _ *models.MembershipPlan) error { return nil }
func (f *fakeBillingRepo) UpdatePlan(_ context.Context, _ *models.MembershipPlan) error { return nil }

func (f *fakeBillingRepo) FindPlanByID(_ context.Context, id uuid.UUID) (*models.MembershipPlan, error) {
	if f.planErr != nil {
		return nil, f.planErr
	}
	return f.plans[id], nil
}

func (f *fakeBillingRepo) FindDefaultPlan(_ context.Context) (*models.MembershipPlan, error) {
	return nil, nil
}

func (f *fakeBillingRepo) ListPlans(_ context.Context, _ *enums.PlanStatus) ([]models.MembershipPlan, error) {
	return nil, nil
}

func (f *fakeBillingRepo) CreatePaymentMethod(_ context.Context, _ *models.PaymentMethod) error {
	return nil
}

func (f *fakeBillingRepo) FindDefaultPaymentMethod(_ context.Context, _ uuid.UUID) (*models.PaymentMethod, error) {
	if f.methodErr != nil {
		return nil, f.methodErr
	}
	return f.defaultMethod, nil
}

func (f *fakeBillingRepo) ListPaymentMethods(_ context.Context, _ uuid.UUID) ([]models.PaymentMethod, error) {
	return nil, nil
}

func (f *fakeBillingRepo) ClearDefaultPaymentMethod(_ context.Context, _ uuid.UUID) error {
	return nil
}

func (f *fakeBillingRepo) CreateBillingRecord(_ context.Context, record *models.BillingRecord) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeBillingRepo) ListBillingRecords(_ context.Context, _ uuid.UUID, _ int) ([]models.BillingRecord, error) {
	return nil, nil
}

func (f *fakeBillingRepo) CountBillingRecordsInMonth(_ context.Context, _ time.Time) (int64, error) {
	return f.monthCount, nil
}

type fakeUsageRepo struct {
	counters map[uuid.UUID]*models.UsageCounter
	findErr  error
}

func (f *fakeUsageRepo) WithTx(*gorm.DB) usage.Repository { return f }

func (f *fakeUsageRepo) Find(_ context.Context, accountID uuid.UUID, _ string) (*models.UsageCounter, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.counters[accountID], nil
}

func (f *fakeUsageRepo) Increment(_ context.Context, _ uuid.UUID, _ string, _ enums.UsageResource, _ int64) error {
	return nil
}

type fakeGateway struct {
	renewResult *gateway.RenewalResult
	renewErr    error
	cancelErr   error

	renewCalls  int
	renewedRefs []string
	cancelled   []string
}

func (f *fakeGateway) RenewSubscription(_ context.Context, _, subscriptionRef, _ string) (*gateway.RenewalResult, error) {
	f.renewCalls++
	f.renewedRefs = append(f.renewedRefs, subscriptionRef)
	if f.renewErr != nil {
		return nil, f.renewErr
	}
	if f.renewResult != nil {
		return f.renewResult, nil
	}
	return &gateway.RenewalResult{SubscriptionRef: subscriptionRef, Status: "active"}, nil
}

func (f *fakeGateway) CancelSubscription(_ context.Context, subscriptionRef string) error {
	f.cancelled = append(f.cancelled, subscriptionRef)
	return f.cancelErr
}

type usageWarningCall struct {
	accountID uuid.UUID
	resource  enums.UsageResource
	pct       int
}

type fakeMailer struct {
	usageDelivered bool
	usageErr       error
	reminderErr    error
	processedErr   error
	noticeErr      error

	usageWarnings []usageWarningCall
	reminders     []uuid.UUID
	processed     []uuid.UUID
	notices       []uuid.UUID
}

func (f *fakeMailer) SendUsageWarning(_ context.Context, acct *models.Account, resource enums.UsageResource, pct int, _ int64, _ int) (bool, error) {
	f.usageWarnings = append(f.usageWarnings, usageWarningCall{accountID: acct.ID, resource: resource, pct: pct})
	return f.usageDelivered, f.usageErr
}

func (f *fakeMailer) SendCancellationReminder(_ context.Context, acct *models.Account, _ time.Time) error {
	f.reminders = append(f.reminders, acct.ID)
	return f.reminderErr
}

func (f *fakeMailer) SendCancellationProcessed(_ context.Context, acct *models.Account) error {
	f.processed = append(f.processed, acct.ID)
	return f.processedErr
}

func (f *fakeMailer) SendFinalDeletionNotice(_ context.Context, acct *models.Account, _ time.Time) error {
	f.notices = append(f.notices, acct.ID)
	return f.noticeErr
}

type fakePrices struct {
	prices map[string]string
}

func (f *fakePrices) Resolve(planName string) (string, bool) {
	ref, ok := f.prices[planName]
	return ref, ok && ref != ""
}
