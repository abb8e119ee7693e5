package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scoutfund/troopsales-backend/pkg/enums"
)

// Order is a customer order captured under a season. ProfileID is
// denormalized from the season so authorization can resolve without a join.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SeasonID        uuid.UUID         `gorm:"column:season_id;type:uuid;not null;index"`
	ProfileID       uuid.UUID         `gorm:"column:profile_id;type:uuid;not null;index"`
	CustomerName    string            `gorm:"column:customer_name;type:text;not null"`
	CustomerContact *string           `gorm:"column:customer_contact;type:text"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Note            *string           `gorm:"column:note;type:text"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Total sums the line totals across items.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OrderItem is one product line on an order. UnitPrice is copied from the
// catalog product at capture time so later catalog edits do not rewrite
// history.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// LineTotal is quantity times unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
