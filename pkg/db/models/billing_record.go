package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

// BillingRecord is an append-only ledger entry for a completed charge.
// Rows are never updated after creation; the repository exposes no update
// surface for them.
type BillingRecord struct {
	ID                 uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID          uuid.UUID                 `gorm:"column:account_id;type:uuid;not null;index"`
	MembershipPlanID   uuid.UUID                 `gorm:"column:membership_plan_id;type:uuid;not null"`
	PaymentMethodID    *uuid.UUID                `gorm:"column:payment_method_id;type:uuid"`
	InvoiceNumber      string                    `gorm:"column:invoice_number;not null;uniqueIndex"`
	Amount             decimal.Decimal           `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency           string                    `gorm:"column:currency;not null;default:'USD'"`
	Status             enums.BillingRecordStatus `gorm:"column:status;type:billing_record_status;not null"`
	PaymentDate        *time.Time                `gorm:"column:payment_date"`
	BillingPeriodStart time.Time                 `gorm:"column:billing_period_start;not null"`
	BillingPeriodEnd   time.Time                 `gorm:"column:billing_period_end;not null"`
	Description        *string                   `gorm:"column:description"`
	Metadata           json.RawMessage           `gorm:"column:metadata;type:jsonb"`
	CreatedAt          time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
