package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	pkgpagination "github.com/scoutfund/troopsales-backend/pkg/pagination"
)

// ListQuery scopes a season's order page.
type ListQuery struct {
	SeasonID uuid.UUID
	Limit    int
	Cursor   *pkgpagination.Cursor
}

// Repository handles order persistence. Items are written with their order
// and read back eagerly; an order without its lines is useless to callers.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists the order and its items in one transaction.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID loads an order with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListBySeason returns the season's orders with items, newest first.
func (r *Repository) ListBySeason(ctx context.Context, opts ListQuery) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("season_id = ?", opts.SeasonID)

	if opts.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			opts.Cursor.CreatedAt, opts.Cursor.CreatedAt, opts.Cursor.ID)
	}

	var orders []models.Order
	if err := query.
		Order("created_at DESC").Order("id DESC").
		Limit(opts.Limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves the order to the given status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// DeleteTx removes a single order and its items inside the transaction.
func (r *Repository) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Order{}).Error
}

// DeleteItemsBySeasonTx bulk-deletes items under the season's orders.
func (r *Repository) DeleteItemsBySeasonTx(tx *gorm.DB, seasonID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return tx.Where("order_id IN (?)",
		tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.Order{}).
			Select("id").
			Where("season_id = ?", seasonID),
	).Delete(&models.OrderItem{}).Error
}

// DeleteBySeasonTx bulk-deletes the season's orders.
func (r *Repository) DeleteBySeasonTx(tx *gorm.DB, seasonID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return tx.Where("season_id = ?", seasonID).Delete(&models.Order{}).Error
}

// DeleteItemsByProfileTx bulk-deletes items under the profile's orders.
func (r *Repository) DeleteItemsByProfileTx(tx *gorm.DB, profileID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return tx.Where("order_id IN (?)",
		tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.Order{}).
			Select("id").
			Where("profile_id = ?", profileID),
	).Delete(&models.OrderItem{}).Error
}

// DeleteByProfileTx bulk-deletes the profile's orders.
func (r *Repository) DeleteByProfileTx(tx *gorm.DB, profileID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return tx.Where("profile_id = ?", profileID).Delete(&models.Order{}).Error
}

// CountByProfile reports how many orders still reference the profile.
func (r *Repository) CountByProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("profile_id = ?", profileID).
		Count(&count).Error
	return count, err
}
