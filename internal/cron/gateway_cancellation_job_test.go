package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
	pkgerrors "github.com/dvalenciar/labelworks-backend/pkg/errors"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
)

type gatewayCancellationJobTestHelper struct {
	job      *gatewayCancellationJob
	accounts *fakeAccountsRepo
	gateway  *fakeGateway
}

func createGatewayCancellationJobTest(t *testing.T) *gatewayCancellationJobTestHelper {
	t.Helper()
	accountsRepo := &fakeAccountsRepo{}
	gw := &fakeGateway{}
	jobIface, err := NewGatewayCancellationJob(GatewayCancellationJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		DB:       &fakeTxRunner{},
		Accounts: accountsRepo,
		Gateway:  gw,
	})
	if err != nil {
		t.Fatalf("NewGatewayCancellationJob: %v", err)
	}
	job := jobIface.(*gatewayCancellationJob)
	job.now = func() time.Time { return time.Date(2026, 8, 10, 3, 0, 0, 0, time.UTC) }
	return &gatewayCancellationJobTestHelper{job: job, accounts: accountsRepo, gateway: gw}
}

func TestGatewayCancellationJob_CancelsRemoteThenCompletesLocally(t *testing.T) {
	helper := createGatewayCancellationJobTest(t)
	now := helper.job.now()
	acct := confirmedAccount(now.Add(-time.Hour))
	sub := "sub_9"
	acct.StripeSubscriptionID = &sub
	helper.accounts.gatewayDue = []models.Account{acct}

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(helper.gateway.cancelled) != 1 || helper.gateway.cancelled[0] != "sub_9" {
		t.Fatalf("expected remote cancel of sub_9, got %v", helper.gateway.cancelled)
	}
	if len(helper.accounts.updated) != 1 {
		t.Fatalf("expected 1 update, got %d", len(helper.accounts.updated))
	}
	updated := helper.accounts.updated[0]
	if updated.CancellationStatus != enums.CancellationStatusCompleted {
		t.Fatalf("unexpected cancellation status %s", updated.CancellationStatus)
	}
	if updated.PaymentStatus != enums.PaymentStatusCancelled {
		t.Fatalf("unexpected payment status %s", updated.PaymentStatus)
	}
	if updated.CancelledAt == nil || !updated.CancelledAt.Equal(now) {
		t.Fatalf("unexpected cancelled_at %v", updated.CancelledAt)
	}
}

func TestGatewayCancellationJob_RemoteFailureStillCompletesLocally(t *testing.T) {
	helper := createGatewayCancellationJobTest(t)
	now := helper.job.now()
	acct := confirmedAccount(now.Add(-time.Hour))
	sub := "sub_9"
	acct.StripeSubscriptionID = &sub
	helper.accounts.gatewayDue = []models.Account{acct}
	helper.gateway.cancelErr = errors.New("gateway timeout")

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(helper.accounts.updated) != 1 {
		t.Fatalf("expected local completion despite remote failure")
	}
	if helper.accounts.updated[0].CancellationStatus != enums.CancellationStatusCompleted {
		t.Fatalf("unexpected status %s", helper.accounts.updated[0].CancellationStatus)
	}
}

func TestGatewayCancellationJob_StoreFailureDoesNotFailRun(t *testing.T) {
	helper := createGatewayCancellationJobTest(t)
	now := helper.job.now()
	acct := confirmedAccount(now.Add(-time.Hour))
	sub := "sub_9"
	acct.StripeSubscriptionID = &sub
	helper.accounts.gatewayDue = []models.Account{acct}
	helper.accounts.updateErr = errors.New("store hiccup")

	// The account stays confirmed and due, so it is re-selected next pass;
	// the run reports the failure through counts, not its return value.
	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(helper.gateway.cancelled) != 1 {
		t.Fatalf("expected remote cancel attempt, got %v", helper.gateway.cancelled)
	}
}

func TestGatewayCancellationJob_ListErrorIsFatal(t *testing.T) {
	helper := createGatewayCancellationJobTest(t)
	helper.accounts.listErr = errors.New("store unreachable")

	err := helper.job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when selection fails")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
