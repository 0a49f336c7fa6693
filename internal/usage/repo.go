package usage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

// Repository handles monthly usage counter persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, accountID uuid.UUID, periodMonth string) (*models.UsageCounter, error)
	Increment(ctx context.Context, accountID uuid.UUID, periodMonth string, resource enums.UsageResource, delta int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a usage repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, accountID uuid.UUID, periodMonth string) (*models.UsageCounter, error) {
	var counter models.UsageCounter
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Where("period_month = ?", periodMonth).
		First(&counter).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &counter, nil
}

// Increment bumps one resource counter, creating the month's row on first use.
// The upsert keys on (account_id, period_month) so concurrent increments never
// produce duplicate rows.
func (r *repository) Increment(ctx context.Context, accountID uuid.UUID, periodMonth string, resource enums.UsageResource, delta int64) error {
	if delta <= 0 {
		delta = 1
	}

	column := "products_created"
	counter := models.UsageCounter{
		ID:              uuid.New(),
		AccountID:       accountID,
		PeriodMonth:     periodMonth,
		ProductsCreated: delta,
	}
	if resource == enums.UsageResourceLabels {
		column = "labels_created"
		counter.ProductsCreated = 0
		counter.LabelsCreated = delta
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "period_month"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				column: gorm.Expr(column+" + ?", delta),
			}),
		}).
		Create(&counter).Error
}
