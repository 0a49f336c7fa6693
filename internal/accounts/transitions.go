package accounts

import (
	"fmt"
	"time"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
	pkgerrors "github.com/dvalenciar/labelworks-backend/pkg/errors"
)

// Transition functions mutate the aggregate in memory only. Callers persist
// the result inside their own transaction, after which any side effects
// (emails, gateway calls) may run. Keeping the state machine free of I/O is
// what lets the batch jobs test it with fake clocks.

const DefaultTrialDays = 14

// StartTrial opens the trial window. Trial timestamps are set once and never
// rewritten afterwards.
func StartTrial(acct *models.Account, now time.Time, days int) error {
	if acct.TrialStartedAt != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "trial already started")
	}
	if days <= 0 {
		days = DefaultTrialDays
	}
	start := now.UTC()
	end := start.Add(time.Duration(days) * 24 * time.Hour)
	acct.PaymentStatus = enums.PaymentStatusTrial
	acct.TrialStartedAt = &start
	acct.TrialEndsAt = &end
	return nil
}

// MarkAsPaid opens a fresh paid period after an initial successful payment.
func MarkAsPaid(acct *models.Account, now time.Time, customerRef, subscriptionRef string) {
	start := now.UTC()
	end := start.AddDate(0, 1, 0)
	acct.PaymentStatus = enums.PaymentStatusPaid
	acct.SubscriptionStartedAt = &start
	acct.SubscriptionEndsAt = &end
	if customerRef != "" {
		acct.StripeCustomerID = &customerRef
	}
	if subscriptionRef != "" {
		acct.StripeSubscriptionID = &subscriptionRef
	}
}

// ApplyRenewal rolls the paid period forward after a successful gateway renewal.
// The gateway-returned subscription ref replaces the stored one when present.
func ApplyRenewal(acct *models.Account, now time.Time, subscriptionRef string) {
	start := now.UTC()
	end := start.AddDate(0, 1, 0)
	acct.PaymentStatus = enums.PaymentStatusPaid
	acct.SubscriptionStartedAt = &start
	acct.SubscriptionEndsAt = &end
	acct.CancelledAt = nil
	acct.AutoRenew = true
	if subscriptionRef != "" {
		acct.StripeSubscriptionID = &subscriptionRef
	}
}

// ApplyRenewalFailure expires the account after a failed charge. Auto-renew is
// switched off so the next pass does not re-select the account and retry the
// charge behind the payer's back.
func ApplyRenewalFailure(acct *models.Account, now time.Time) {
	cancelled := now.UTC()
	acct.PaymentStatus = enums.PaymentStatusExpired
	acct.AutoRenew = false
	acct.CancelledAt = &cancelled
}

// RequestCancellation opens the cancellation funnel.
func RequestCancellation(acct *models.Account, now time.Time, reason *string) error {
	if acct.CancellationStatus != enums.CancellationStatusNone {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cancellation already %s", acct.CancellationStatus))
	}
	requested := now.UTC()
	acct.CancellationStatus = enums.CancellationStatusPending
	acct.CancellationRequestedAt = &requested
	acct.CancellationReason = reason
	acct.CancellationEffectiveAt = nil
	return nil
}

// ConfirmCancellation locks in the request and starts the cooling-off window.
// The effective time is anchored on the request time so the window is exactly
// coolingOffDays regardless of when confirmation happens.
func ConfirmCancellation(acct *models.Account, now time.Time, coolingOffDays int) error {
	if acct.CancellationStatus != enums.CancellationStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot confirm cancellation from %s", acct.CancellationStatus))
	}
	if coolingOffDays <= 0 {
		coolingOffDays = 3
	}
	base := now.UTC()
	if acct.CancellationRequestedAt != nil {
		base = acct.CancellationRequestedAt.UTC()
	}
	effective := base.Add(time.Duration(coolingOffDays) * 24 * time.Hour)
	acct.CancellationStatus = enums.CancellationStatusConfirmed
	acct.CancellationEffectiveAt = &effective
	return nil
}

// CancelCancellationRequest resets the funnel. This is the only transition
// allowed to move cancellation state backwards, and only before the funnel
// reached a terminal status.
func CancelCancellationRequest(acct *models.Account) error {
	if acct.CancellationStatus.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation already executed")
	}
	acct.CancellationStatus = enums.CancellationStatusNone
	acct.CancellationRequestedAt = nil
	acct.CancellationEffectiveAt = nil
	acct.CancellationReason = nil
	return nil
}

// FinalizeCancellation executes the local cancellation path once the
// cooling-off window has elapsed.
func FinalizeCancellation(acct *models.Account, now time.Time) error {
	if acct.CancellationStatus != enums.CancellationStatusConfirmed {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot finalize cancellation from %s", acct.CancellationStatus))
	}
	ends := now.UTC()
	acct.PaymentStatus = enums.PaymentStatusExpired
	acct.CancellationStatus = enums.CancellationStatusProcessed
	acct.SubscriptionEndsAt = &ends
	acct.AutoRenew = false
	return nil
}

// CompleteGatewayCancellation executes the gateway cancellation path. Local
// state advances whether or not the remote cancel call succeeded; the caller
// is responsible for having attempted it.
func CompleteGatewayCancellation(acct *models.Account, now time.Time) error {
	if acct.CancellationStatus != enums.CancellationStatusConfirmed {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot complete cancellation from %s", acct.CancellationStatus))
	}
	ends := now.UTC()
	acct.PaymentStatus = enums.PaymentStatusCancelled
	acct.CancellationStatus = enums.CancellationStatusCompleted
	acct.SubscriptionEndsAt = &ends
	acct.CancelledAt = &ends
	acct.AutoRenew = false
	return nil
}

// ScheduleDeletion marks the account for permanent removal at the given time.
func ScheduleDeletion(acct *models.Account, at time.Time) {
	scheduled := at.UTC()
	acct.DeletionScheduledAt = &scheduled
}

// CancelScheduledDeletion clears a pending deletion. Only callable while the
// deletion has not executed; a deleted account no longer exists to call this on.
func CancelScheduledDeletion(acct *models.Account) {
	acct.DeletionScheduledAt = nil
}
