package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerProfile is the root of the sharing hierarchy. The owner is set at
// creation and never reassigned; everything beneath a profile resolves its
// authorization subject up to this row.
type SellerProfile struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerAccountID uuid.UUID `gorm:"column:owner_account_id;type:uuid;not null;index"`
	SellerName     string    `gorm:"column:seller_name;type:text;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
