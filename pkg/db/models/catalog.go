package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Catalog is an independently owned product list referenced by seasons.
// Catalogs survive profile deletion.
type Catalog struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;type:text;not null"`
	SeasonYear int       `gorm:"column:season_year;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CatalogProduct is one sellable item in a catalog.
type CatalogProduct struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CatalogID uuid.UUID       `gorm:"column:catalog_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;type:text;not null"`
	SKU       *string         `gorm:"column:sku;type:text"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
