package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/scoutfund/troopsales-backend/pkg/enums"
)

// ProfileInvite is a single-use, expiring offer to become a ProfileShare.
// Only consumption is stored; expiry is derived from ExpiresAt at read time.
type ProfileInvite struct {
	Code               string         `gorm:"column:code;type:text;primaryKey"`
	ProfileID          uuid.UUID      `gorm:"column:profile_id;type:uuid;not null;index"`
	Permissions        pq.StringArray `gorm:"column:permissions;type:text[];not null"`
	ExpiresAt          time.Time      `gorm:"column:expires_at;not null"`
	Consumed           bool           `gorm:"column:consumed;not null;default:false"`
	ConsumedByID       *uuid.UUID     `gorm:"column:consumed_by_account_id;type:uuid"`
	ConsumedAt         *time.Time     `gorm:"column:consumed_at"`
	CreatedByAccountID uuid.UUID      `gorm:"column:created_by_account_id;type:uuid;not null"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// PermissionSet converts the stored values, dropping anything unknown.
func (i ProfileInvite) PermissionSet() enums.PermissionSet {
	set := make(enums.PermissionSet, 0, len(i.Permissions))
	for _, raw := range i.Permissions {
		if perm, err := enums.ParsePermission(raw); err == nil && !set.Contains(perm) {
			set = append(set, perm)
		}
	}
	return set
}

// State derives the lifecycle state at the given instant.
func (i ProfileInvite) State(now time.Time) enums.InviteState {
	return enums.CurrentInviteState(enums.InviteClock{
		Consumed:  i.Consumed,
		ExpiresAt: i.ExpiresAt,
	}, now)
}
