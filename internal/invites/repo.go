package invites

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// Repository handles profile invite persistence. Consumption goes through
// a conditional update so two concurrent redemptions cannot both win.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new invite row.
func (r *Repository) Create(ctx context.Context, invite *models.ProfileInvite) error {
	if invite == nil {
		return fmt.Errorf("invite is required")
	}
	return r.db.WithContext(ctx).Create(invite).Error
}

// FindByCode loads an invite by its opaque code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.ProfileInvite, error) {
	var invite models.ProfileInvite
	if err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// ConsumeTx flips the invite to consumed iff nobody has consumed it yet
// and it is still unexpired at the given instant. It reports whether this
// call won the race; a false return with a nil error means another
// redemption got there first or the invite lapsed in between.
func (r *Repository) ConsumeTx(tx *gorm.DB, code string, accountID uuid.UUID, now time.Time) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	res := tx.Model(&models.ProfileInvite{}).
		Where("code = ? AND consumed = ? AND expires_at > ?", code, false, now).
		Updates(map[string]interface{}{
			"consumed":               true,
			"consumed_by_account_id": accountID,
			"consumed_at":            now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteByCode removes the invite row. Deleting an absent code succeeds.
func (r *Repository) DeleteByCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Where("code = ?", code).
		Delete(&models.ProfileInvite{}).Error
}

// ListByProfile returns the profile's invites, newest first.
func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ProfileInvite, error) {
	var invites []models.ProfileInvite
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

// DeleteByProfileTx bulk-deletes the profile's invites inside a transaction.
func (r *Repository) DeleteByProfileTx(tx *gorm.DB, profileID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return tx.Where("profile_id = ?", profileID).Delete(&models.ProfileInvite{}).Error
}

// CountByProfile reports how many invites still reference the profile.
func (r *Repository) CountByProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProfileInvite{}).
		Where("profile_id = ?", profileID).
		Count(&count).Error
	return count, err
}
