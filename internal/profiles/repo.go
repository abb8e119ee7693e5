package profiles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// Repository handles seller profile persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to profile operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new profile row.
func (r *Repository) Create(ctx context.Context, profile *models.SellerProfile) error {
	if profile == nil {
		return fmt.Errorf("profile is required")
	}
	return r.db.WithContext(ctx).Create(profile).Error
}

// FindByID loads a profile by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error) {
	var profile models.SellerProfile
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByOwner returns all profiles owned by the provided account.
func (r *Repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.SellerProfile, error) {
	var profiles []models.SellerProfile
	if err := r.db.WithContext(ctx).
		Where("owner_account_id = ?", ownerID).
		Order("created_at").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// FindByIDs loads the given profiles, skipping absent IDs.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.SellerProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []models.SellerProfile
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpdateName renames the profile.
func (r *Repository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerProfile{}).
		Where("id = ?", id).
		Update("seller_name", name).Error
}

// DeleteTx removes the profile row inside the provided transaction.
// Deleting an absent profile is a no-op.
func (r *Repository) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Where("id = ?", id).Delete(&models.SellerProfile{}).Error
}

// CountByID reports whether the profile row still exists.
func (r *Repository) CountByID(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SellerProfile{}).
		Where("id = ?", id).
		Count(&count).Error
	return count, err
}
