package seasons

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// Repository handles season persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new season row.
func (r *Repository) Create(ctx context.Context, season *models.Season) error {
	if season == nil {
		return fmt.Errorf("season is required")
	}
	return r.db.WithContext(ctx).Create(season).Error
}

// FindByID loads a season by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Season, error) {
	var season models.Season
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&season).Error; err != nil {
		return nil, err
	}
	return &season, nil
}

// ListByProfile returns the profile's seasons, oldest first.
func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Season, error) {
	var seasons []models.Season
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at").
		Find(&seasons).Error; err != nil {
		return nil, err
	}
	return seasons, nil
}

// Update applies the mutable season fields.
func (r *Repository) Update(ctx context.Context, season *models.Season) error {
	if season == nil {
		return fmt.Errorf("season is required")
	}
	return r.db.WithContext(ctx).
		Model(&models.Season{}).
		Where("id = ?", season.ID).
		Updates(map[string]interface{}{
			"name":      season.Name,
			"starts_at": season.StartsAt,
			"ends_at":   season.EndsAt,
		}).Error
}

// DeleteTx removes a single season inside the provided transaction.
func (r *Repository) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return tx.Where("id = ?", id).Delete(&models.Season{}).Error
}

// DeleteByProfileTx bulk-deletes the profile's seasons inside a transaction.
func (r *Repository) DeleteByProfileTx(tx *gorm.DB, profileID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return tx.Where("profile_id = ?", profileID).Delete(&models.Season{}).Error
}

// CountByProfile reports how many seasons still reference the profile.
func (r *Repository) CountByProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Season{}).
		Where("profile_id = ?", profileID).
		Count(&count).Error
	return count, err
}
