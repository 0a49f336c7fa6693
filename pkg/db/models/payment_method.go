package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod mirrors a card on file at the payment gateway.
type PaymentMethod struct {
	ID                    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID             uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`
	StripePaymentMethodID string    `gorm:"column:stripe_payment_method_id;not null;unique"`
	IsDefault             bool      `gorm:"column:is_default;not null;default:false"`
	IsActive              bool      `gorm:"column:is_active;not null;default:true"`
	CardBrand             *string   `gorm:"column:card_brand"`
	CardLast4             *string   `gorm:"column:card_last4"`
	ExpiryMonth           int       `gorm:"column:expiry_month;not null"`
	ExpiryYear            int       `gorm:"column:expiry_year;not null"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports whether the card expiry has passed relative to now.
func (p PaymentMethod) IsExpired(now time.Time) bool {
	if p.ExpiryYear < now.Year() {
		return true
	}
	return p.ExpiryYear == now.Year() && p.ExpiryMonth < int(now.Month())
}
