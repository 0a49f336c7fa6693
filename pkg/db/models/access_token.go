package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is an opaque API credential issued to an account. Tokens are
// revoked wholesale when the account is deleted.
type AccessToken struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID  uuid.UUID  `gorm:"column:account_id;type:uuid;not null;index"`
	Name       string     `gorm:"column:name;not null"`
	TokenHash  string     `gorm:"column:token_hash;not null;uniqueIndex"`
	LastUsedAt *time.Time `gorm:"column:last_used_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
