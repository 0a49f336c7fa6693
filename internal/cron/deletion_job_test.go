package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
	pkgerrors "github.com/dvalenciar/labelworks-backend/pkg/errors"
	"github.com/dvalenciar/labelworks-backend/pkg/logger"
)

type deletionJobTestHelper struct {
	job      *deletionJob
	accounts *fakeAccountsRepo
	mailer   *fakeMailer
}

func createDeletionJobTest(t *testing.T) *deletionJobTestHelper {
	t.Helper()
	accountsRepo := &fakeAccountsRepo{}
	mailer := &fakeMailer{}
	jobIface, err := NewDeletionJob(DeletionJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		DB:       &fakeTxRunner{},
		Accounts: accountsRepo,
		Mailer:   mailer,
	})
	if err != nil {
		t.Fatalf("NewDeletionJob: %v", err)
	}
	job := jobIface.(*deletionJob)
	job.now = func() time.Time { return time.Date(2026, 8, 10, 4, 0, 0, 0, time.UTC) }
	return &deletionJobTestHelper{job: job, accounts: accountsRepo, mailer: mailer}
}

func scheduledForDeletion(at time.Time) models.Account {
	return models.Account{
		ID:                  uuid.New(),
		Email:               "gone@example.com",
		PaymentStatus:       enums.PaymentStatusCancelled,
		DeletionScheduledAt: &at,
	}
}

func TestDeletionJob_NotifiesRevokesAndDeletes(t *testing.T) {
	helper := createDeletionJobTest(t)
	now := helper.job.now()
	acct := scheduledForDeletion(now.Add(-time.Hour))
	helper.accounts.deletionsDue = []models.Account{acct}
	helper.accounts.revokeCount = 2

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(helper.mailer.notices) != 1 || helper.mailer.notices[0] != acct.ID {
		t.Fatalf("expected final notice for %s", acct.ID)
	}
	if len(helper.accounts.revokedFor) != 1 || helper.accounts.revokedFor[0] != acct.ID {
		t.Fatalf("expected token revocation for %s", acct.ID)
	}
	if len(helper.accounts.deleted) != 1 || helper.accounts.deleted[0] != acct.ID {
		t.Fatalf("expected account deletion for %s", acct.ID)
	}
}

func TestDeletionJob_NoticeFailureStillDeletes(t *testing.T) {
	helper := createDeletionJobTest(t)
	now := helper.job.now()
	acct := scheduledForDeletion(now.Add(-time.Hour))
	helper.accounts.deletionsDue = []models.Account{acct}
	helper.mailer.noticeErr = errors.New("bounce")

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(helper.accounts.deleted) != 1 {
		t.Fatalf("expected deletion despite notice failure")
	}
}

func TestDeletionJob_DeleteFailureLeavesRowForNextPass(t *testing.T) {
	helper := createDeletionJobTest(t)
	now := helper.job.now()
	first := scheduledForDeletion(now.Add(-2 * time.Hour))
	second := scheduledForDeletion(now.Add(-time.Hour))
	helper.accounts.deletionsDue = []models.Account{first, second}
	helper.accounts.deleteErr = errors.New("fk violation")

	// A failed delete is counted and retried next pass; the run itself
	// completes cleanly so one bad row never fails the whole invocation.
	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Both accounts were attempted.
	if len(helper.mailer.notices) != 2 {
		t.Fatalf("expected 2 notices, got %d", len(helper.mailer.notices))
	}
	if len(helper.accounts.deleted) != 0 {
		t.Fatalf("expected no deletions, got %d", len(helper.accounts.deleted))
	}
}

func TestDeletionJob_ListErrorIsFatal(t *testing.T) {
	helper := createDeletionJobTest(t)
	helper.accounts.listErr = errors.New("store unreachable")

	err := helper.job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when selection fails")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !pkgerrors.MetadataFor(typed.Code()).Fatal {
		t.Fatalf("selection failure should be fatal")
	}
}
