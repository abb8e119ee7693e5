package models

import (
	"time"

	"github.com/google/uuid"
)

// Season is one selling campaign under a profile, tied to the product
// catalog its orders draw from.
type Season struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID uuid.UUID  `gorm:"column:profile_id;type:uuid;not null;index"`
	CatalogID uuid.UUID  `gorm:"column:catalog_id;type:uuid;not null"`
	Name      string     `gorm:"column:name;type:text;not null"`
	StartsAt  *time.Time `gorm:"column:starts_at"`
	EndsAt    *time.Time `gorm:"column:ends_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
