package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageCounter tallies metered resource activity for one account in one
// calendar month. Rows are created lazily on the first increment of a month
// and only ever incremented afterwards.
type UsageCounter struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID       uuid.UUID `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_usage_account_month"`
	PeriodMonth     string    `gorm:"column:period_month;not null;uniqueIndex:idx_usage_account_month"`
	ProductsCreated int64     `gorm:"column:products_created;not null;default:0"`
	LabelsCreated   int64     `gorm:"column:labels_created;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PeriodKey formats the calendar month key used for usage counter rows.
func PeriodKey(at time.Time) string {
	return at.UTC().Format("2006-01")
}
