package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

// MembershipPlan captures the local metadata for a subscription plan.
// A limit of zero means the resource is unlimited on that plan.
type MembershipPlan struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string           `gorm:"column:name;not null;uniqueIndex"`
	Status       enums.PlanStatus `gorm:"column:status;type:plan_status;not null;default:'active'"`
	IsDefault    bool             `gorm:"column:is_default;not null;default:false"`
	Price        decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	CurrencyCode string           `gorm:"column:currency_code;not null;default:'USD'"`
	ProductLimit int              `gorm:"column:product_limit;not null;default:0"`
	LabelLimit   int              `gorm:"column:label_limit;not null;default:0"`
	Features     pq.StringArray   `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// HasUnlimitedProducts reports whether the plan meters product creation.
func (m MembershipPlan) HasUnlimitedProducts() bool {
	return m.ProductLimit == 0
}

// HasUnlimitedLabels reports whether the plan meters label creation.
func (m MembershipPlan) HasUnlimitedLabels() bool {
	return m.LabelLimit == 0
}

// LimitFor returns the plan cap for the given resource family.
func (m MembershipPlan) LimitFor(resource enums.UsageResource) int {
	switch resource {
	case enums.UsageResourceProducts:
		return m.ProductLimit
	case enums.UsageResourceLabels:
		return m.LabelLimit
	default:
		return 0
	}
}
