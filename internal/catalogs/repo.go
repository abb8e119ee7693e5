package catalogs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// Repository reads catalog rows. Catalogs are seeded by operators and are
// never mutated through the API, so there are no write operations here.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a catalog by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Catalog, error) {
	var catalog models.Catalog
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&catalog).Error; err != nil {
		return nil, err
	}
	return &catalog, nil
}

// CountByID reports whether the catalog exists.
func (r *Repository) CountByID(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Catalog{}).
		Where("id = ?", id).
		Count(&count).Error
	return count, err
}

// List returns all catalogs, newest season year first.
func (r *Repository) List(ctx context.Context) ([]models.Catalog, error) {
	var catalogs []models.Catalog
	if err := r.db.WithContext(ctx).
		Order("season_year DESC, name").
		Find(&catalogs).Error; err != nil {
		return nil, err
	}
	return catalogs, nil
}

// ListProducts returns the catalog's products, by name.
func (r *Repository) ListProducts(ctx context.Context, catalogID uuid.UUID) ([]models.CatalogProduct, error) {
	var products []models.CatalogProduct
	if err := r.db.WithContext(ctx).
		Where("catalog_id = ?", catalogID).
		Order("name").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindProductsByIDs loads products by ID scoped to one catalog; a product
// from another catalog simply does not come back.
func (r *Repository) FindProductsByIDs(ctx context.Context, catalogID uuid.UUID, ids []uuid.UUID) ([]models.CatalogProduct, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.CatalogProduct
	if err := r.db.WithContext(ctx).
		Where("catalog_id = ? AND id IN ?", catalogID, ids).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
