package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// OrderDTO is the API shape of a fundraising order.
type OrderDTO struct {
	ID              uuid.UUID       `json:"id"`
	SeasonID        uuid.UUID       `json:"season_id"`
	ProfileID       uuid.UUID       `json:"profile_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerContact *string         `json:"customer_contact,omitempty"`
	Status          string          `json:"status"`
	Note            *string         `json:"note,omitempty"`
	Items           []OrderItemDTO  `json:"items"`
	Total           decimal.Decimal `json:"total"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ListResult is one page of a season's orders.
type ListResult struct {
	Items  []OrderDTO `json:"items"`
	Cursor string     `json:"cursor"`
}

// OrderItemDTO is one product line on an order.
type OrderItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// FromModel maps an order row and its items to the DTO.
func FromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		})
	}
	return &OrderDTO{
		ID:              order.ID,
		SeasonID:        order.SeasonID,
		ProfileID:       order.ProfileID,
		CustomerName:    order.CustomerName,
		CustomerContact: order.CustomerContact,
		Status:          order.Status.String(),
		Note:            order.Note,
		Items:           items,
		Total:           order.Total(),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

// FromModels maps a slice of order rows.
func FromModels(orders []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for i := range orders {
		out = append(out, *FromModel(&orders[i]))
	}
	return out
}
