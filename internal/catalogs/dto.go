package catalogs

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// CatalogDTO is the API shape of a product catalog.
type CatalogDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SeasonYear int       `json:"season_year"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProductDTO is the API shape of one catalog product.
type ProductDTO struct {
	ID        uuid.UUID       `json:"id"`
	CatalogID uuid.UUID       `json:"catalog_id"`
	Name      string          `json:"name"`
	SKU       *string         `json:"sku,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// FromModel maps a catalog row to its DTO.
func FromModel(catalog *models.Catalog) *CatalogDTO {
	if catalog == nil {
		return nil
	}
	return &CatalogDTO{
		ID:         catalog.ID,
		Name:       catalog.Name,
		SeasonYear: catalog.SeasonYear,
		CreatedAt:  catalog.CreatedAt,
		UpdatedAt:  catalog.UpdatedAt,
	}
}

// FromModels maps a slice of catalog rows.
func FromModels(catalogs []models.Catalog) []CatalogDTO {
	out := make([]CatalogDTO, 0, len(catalogs))
	for i := range catalogs {
		out = append(out, *FromModel(&catalogs[i]))
	}
	return out
}

// ProductFromModel maps a product row to its DTO.
func ProductFromModel(product *models.CatalogProduct) *ProductDTO {
	if product == nil {
		return nil
	}
	return &ProductDTO{
		ID:        product.ID,
		CatalogID: product.CatalogID,
		Name:      product.Name,
		SKU:       product.SKU,
		UnitPrice: product.UnitPrice,
	}
}

// ProductsFromModels maps a slice of product rows.
func ProductsFromModels(products []models.CatalogProduct) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *ProductFromModel(&products[i]))
	}
	return out
}
