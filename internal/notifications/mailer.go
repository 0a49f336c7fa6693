package notifications

import (
	"context"
	"time"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

// Mailer sends lifecycle emails. Every call site treats delivery as
// best-effort: a send failure is logged and never fails the account step
// that triggered it.
type Mailer interface {
	// SendUsageWarning notifies the account it is approaching a plan limit.
	// The bool reports whether the message was actually delivered; callers
	// only advance throttling state when it is true.
	SendUsageWarning(ctx context.Context, acct *models.Account, resource enums.UsageResource, pct int, current int64, limit int) (bool, error)
	// SendCancellationReminder warns that the cooling-off window is about
	// to elapse.
	SendCancellationReminder(ctx context.Context, acct *models.Account, effectiveAt time.Time) error
	// SendCancellationProcessed confirms the subscription was cancelled.
	SendCancellationProcessed(ctx context.Context, acct *models.Account) error
	// SendFinalDeletionNotice tells the account its data is about to be
	// permanently removed.
	SendFinalDeletionNotice(ctx context.Context, acct *models.Account, scheduledAt time.Time) error
}
