package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

// Account is the billed entity and the aggregate root for the subscription
// lifecycle. payment_status is the single source of truth for whether the
// account is on a trial or a paid period.
type Account struct {
	ID           uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string              `gorm:"type:text;not null;uniqueIndex"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'trial'"`

	TrialStartedAt *time.Time `gorm:"column:trial_started_at"`
	TrialEndsAt    *time.Time `gorm:"column:trial_ends_at"`

	SubscriptionStartedAt *time.Time `gorm:"column:subscription_started_at"`
	SubscriptionEndsAt    *time.Time `gorm:"column:subscription_ends_at;index"`
	AutoRenew             bool       `gorm:"column:auto_renew;not null;default:false"`

	MembershipPlanID *uuid.UUID `gorm:"column:membership_plan_id;type:uuid;index"`

	StripeCustomerID     *string `gorm:"column:stripe_customer_id"`
	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id"`

	CancellationStatus      enums.CancellationStatus `gorm:"column:cancellation_status;type:cancellation_status;not null;default:'none'"`
	CancellationRequestedAt *time.Time               `gorm:"column:cancellation_requested_at"`
	CancellationEffectiveAt *time.Time               `gorm:"column:cancellation_effective_at;index"`
	CancellationReason      *string                  `gorm:"column:cancellation_reason"`
	CancelledAt             *time.Time               `gorm:"column:cancelled_at"`

	DeletionScheduledAt *time.Time `gorm:"column:deletion_scheduled_at;index"`

	LastUsageWarningSentAt *time.Time `gorm:"column:last_usage_warning_sent_at"`

	IsSuspended bool `gorm:"column:is_suspended;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
