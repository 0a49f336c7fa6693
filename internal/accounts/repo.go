package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

const defaultPageLimit = 250

// Repository handles account persistence and the batch selection predicates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, acct *models.Account) error
	Update(ctx context.Context, acct *models.Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)

	ListRenewalCandidates(ctx context.Context, now time.Time, limit int) ([]models.Account, error)
	ListCancellationsDue(ctx context.Context, now time.Time, limit int) ([]models.Account, error)
	ListGatewayCancellationsDue(ctx context.Context, now time.Time, limit int) ([]models.Account, error)
	ListUpcomingCancellations(ctx context.Context, now time.Time, limit int) ([]models.Account, error)
	ListDeletionsDue(ctx context.Context, now time.Time, limit int) ([]models.Account, error)
	ListUsageWarningCandidates(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Account, error)

	RevokeAccessTokens(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, acct *models.Account) error {
	return r.db.WithContext(ctx).Create(acct).Error
}

func (r *repository) Update(ctx context.Context, acct *models.Account) error {
	return r.db.WithContext(ctx).Save(acct).Error
}

// Delete permanently removes the account row. There is no soft-delete column;
// deletion is the terminal state of the aggregate.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Account{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var acct models.Account
	if err := r.db.WithContext(ctx).First(&acct, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &acct, nil
}

// ListRenewalCandidates selects accounts whose paid period elapsed with
// auto-renew still on and both gateway refs present. Accounts already expired
// are excluded, which is what makes a failed renewal terminal until the user
// re-enables auto-renew.
func (r *repository) ListRenewalCandidates(ctx context.Context, now time.Time, limit int) ([]models.Account, error) {
	var accts []models.Account
	err := r.db.WithContext(ctx).
		Where("subscription_ends_at <= ?", now.UTC()).
		Where("auto_renew = ?", true).
		Where("payment_status <> ?", enums.PaymentStatusExpired).
		Where("stripe_customer_id IS NOT NULL AND stripe_customer_id <> ''").
		Where("stripe_subscription_id IS NOT NULL AND stripe_subscription_id <> ''").
		Order("subscription_ends_at ASC").
		Limit(pageLimit(limit)).
		Find(&accts).Error
	if err != nil {
		return nil, err
	}
	return accts, nil
}

func (r *repository) ListCancellationsDue(ctx context.Context, now time.Time, limit int) ([]models.Account, error) {
	var accts []models.Account
	err := r.db.WithContext(ctx).
		Where("cancellation_status = ?", enums.CancellationStatusConfirmed).
		Where("cancellation_effective_at IS NOT NULL AND cancellation_effective_at <= ?", now.UTC()).
		Order("cancellation_effective_at ASC").
		Limit(pageLimit(limit)).
		Find(&accts).Error
	if err != nil {
		return nil, err
	}
	return accts, nil
}

// ListGatewayCancellationsDue narrows the due set to accounts that still carry
// a remote subscription ref worth cancelling.
func (r *repository) ListGatewayCancellationsDue(ctx context.Context, now time.Time, limit int) ([]models.Account, error) {
	var accts []models.Account
	err := r.db.WithContext(ctx).
		Where("cancellation_status = ?", enums.CancellationStatusConfirmed).
		Where("cancellation_effective_at IS NOT NULL AND cancellation_effective_at <= ?", now.UTC()).
		Where("stripe_subscription_id IS NOT NULL AND stripe_subscription_id <> ''").
		Order("cancellation_effective_at ASC").
		Limit(pageLimit(limit)).
		Find(&accts).Error
	if err != nil {
		return nil, err
	}
	return accts, nil
}

func (r *repository) ListUpcomingCancellations(ctx context.Context, now time.Time, limit int) ([]models.Account, error) {
	var accts []models.Account
	err := r.db.WithContext(ctx).
		Where("cancellation_status = ?", enums.CancellationStatusConfirmed).
		Where("cancellation_effective_at IS NOT NULL AND cancellation_effective_at > ?", now.UTC()).
		Order("cancellation_effective_at ASC").
		Limit(pageLimit(limit)).
		Find(&accts).Error
	if err != nil {
		return nil, err
	}
	return accts, nil
}

func (r *repository) ListDeletionsDue(ctx context.Context, now time.Time, limit int) ([]models.Account, error) {
	var accts []models.Account
	err := r.db.WithContext(ctx).
		Where("deletion_scheduled_at IS NOT NULL AND deletion_scheduled_at <= ?", now.UTC()).
		Order("deletion_scheduled_at ASC").
		Limit(pageLimit(limit)).
		Find(&accts).Error
	if err != nil {
		return nil, err
	}
	return accts, nil
}

// ListUsageWarningCandidates pages through accounts with a plan assigned and a
// live billing status, keyset-ordered by id so the caller can sweep the whole
// table in bounded chunks.
func (r *repository) ListUsageWarningCandidates(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Account, error) {
	query := r.db.WithContext(ctx).
		Where("membership_plan_id IS NOT NULL").
		Where("payment_status <> ?", enums.PaymentStatusExpired)
	if afterID != uuid.Nil {
		query = query.Where("id > ?", afterID)
	}
	var accts []models.Account
	if err := query.Order("id ASC").Limit(pageLimit(limit)).Find(&accts).Error; err != nil {
		return nil, err
	}
	return accts, nil
}

// RevokeAccessTokens deletes every credential issued to the account. Deleting
// an empty set is a no-op, which keeps the deletion job safe to re-run.
func (r *repository) RevokeAccessTokens(ctx context.Context, accountID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.AccessToken{}, "account_id = ?", accountID)
	return res.RowsAffected, res.Error
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	return limit
}
