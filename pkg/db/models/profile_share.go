package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/scoutfund/troopsales-backend/pkg/enums"
)

// ProfileShare grants a target account a permission subset on one profile.
// Identity is the (profile, target) pair; re-sharing upserts the row.
type ProfileShare struct {
	ProfileID          uuid.UUID      `gorm:"column:profile_id;type:uuid;primaryKey"`
	TargetAccountID    uuid.UUID      `gorm:"column:target_account_id;type:uuid;primaryKey;index"`
	Permissions        pq.StringArray `gorm:"column:permissions;type:text[];not null"`
	CreatedByAccountID uuid.UUID      `gorm:"column:created_by_account_id;type:uuid;not null"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// PermissionSet converts the stored values, dropping anything unknown rather
// than failing the read.
func (s ProfileShare) PermissionSet() enums.PermissionSet {
	set := make(enums.PermissionSet, 0, len(s.Permissions))
	for _, raw := range s.Permissions {
		if perm, err := enums.ParsePermission(raw); err == nil && !set.Contains(perm) {
			set = append(set, perm)
		}
	}
	return set
}
