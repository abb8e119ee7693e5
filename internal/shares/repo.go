package shares

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// Repository handles profile share persistence. A share's identity is the
// (profile, target account) pair, so writes are upserts on that pair.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find loads the share for one profile/target pair.
func (r *Repository) Find(ctx context.Context, profileID, targetAccountID uuid.UUID) (*models.ProfileShare, error) {
	var share models.ProfileShare
	if err := r.db.WithContext(ctx).
		Where("profile_id = ? AND target_account_id = ?", profileID, targetAccountID).
		First(&share).Error; err != nil {
		return nil, err
	}
	return &share, nil
}

// FindTx runs the same lookup inside the provided transaction.
func (r *Repository) FindTx(tx *gorm.DB, profileID, targetAccountID uuid.UUID) (*models.ProfileShare, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}
	var share models.ProfileShare
	if err := tx.
		Where("profile_id = ? AND target_account_id = ?", profileID, targetAccountID).
		First(&share).Error; err != nil {
		return nil, err
	}
	return &share, nil
}

// Upsert creates the share or replaces the permission set of an existing one.
func (r *Repository) Upsert(ctx context.Context, share *models.ProfileShare) error {
	if share == nil {
		return fmt.Errorf("share is required")
	}
	return upsert(r.db.WithContext(ctx), share)
}

// UpsertTx runs the same upsert inside the provided transaction.
func (r *Repository) UpsertTx(tx *gorm.DB, share *models.ProfileShare) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if share == nil {
		return fmt.Errorf("share is required")
	}
	return upsert(tx, share)
}

func upsert(db *gorm.DB, share *models.ProfileShare) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "profile_id"}, {Name: "target_account_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"permissions": share.Permissions,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(share).Error
}

// Delete removes the share for the pair. Deleting an absent share succeeds.
func (r *Repository) Delete(ctx context.Context, profileID, targetAccountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("profile_id = ? AND target_account_id = ?", profileID, targetAccountID).
		Delete(&models.ProfileShare{}).Error
}

// ListByProfile returns every share on the profile, oldest first.
func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ProfileShare, error) {
	var shares []models.ProfileShare
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at").
		Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

// ListByTarget returns every share granted to the account, oldest first.
func (r *Repository) ListByTarget(ctx context.Context, targetAccountID uuid.UUID) ([]models.ProfileShare, error) {
	var shares []models.ProfileShare
	if err := r.db.WithContext(ctx).
		Where("target_account_id = ?", targetAccountID).
		Order("created_at").
		Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

// ListTargetsByProfile returns the accounts the profile is shared with.
func (r *Repository) ListTargetsByProfile(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	var targets []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.ProfileShare{}).
		Where("profile_id = ?", profileID).
		Pluck("target_account_id", &targets).Error; err != nil {
		return nil, err
	}
	return targets, nil
}

// ListProfileIDsByTarget returns the profiles shared with the account.
func (r *Repository) ListProfileIDsByTarget(ctx context.Context, targetAccountID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.ProfileShare{}).
		Where("target_account_id = ?", targetAccountID).
		Pluck("profile_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByProfileTx bulk-deletes the profile's shares inside a transaction.
func (r *Repository) DeleteByProfileTx(tx *gorm.DB, profileID uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return tx.Where("profile_id = ?", profileID).Delete(&models.ProfileShare{}).Error
}

// CountByProfile reports how many shares still reference the profile.
func (r *Repository) CountByProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProfileShare{}).
		Where("profile_id = ?", profileID).
		Count(&count).Error
	return count, err
}
