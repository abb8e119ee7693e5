package invites

import (
	"time"

	"github.com/google/uuid"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// InviteDTO is the API shape of a profile invite. State is computed from
// the consumed flag and the expiry timestamp at render time.
type InviteDTO struct {
	Code               string     `json:"code"`
	ProfileID          uuid.UUID  `json:"profile_id"`
	Permissions        []string   `json:"permissions"`
	State              string     `json:"state"`
	ExpiresAt          time.Time  `json:"expires_at"`
	ConsumedByID       *uuid.UUID `json:"consumed_by_account_id,omitempty"`
	ConsumedAt         *time.Time `json:"consumed_at,omitempty"`
	CreatedByAccountID uuid.UUID  `json:"created_by_account_id"`
	CreatedAt          time.Time  `json:"created_at"`
}

// FromModel maps an invite row to its DTO as of the given instant.
func FromModel(invite *models.ProfileInvite, now time.Time) *InviteDTO {
	if invite == nil {
		return nil
	}
	return &InviteDTO{
		Code:               invite.Code,
		ProfileID:          invite.ProfileID,
		Permissions:        invite.PermissionSet().Strings(),
		State:              invite.State(now).String(),
		ExpiresAt:          invite.ExpiresAt,
		ConsumedByID:       invite.ConsumedByID,
		ConsumedAt:         invite.ConsumedAt,
		CreatedByAccountID: invite.CreatedByAccountID,
		CreatedAt:          invite.CreatedAt,
	}
}

// FromModels maps a slice of invite rows as of the given instant.
func FromModels(invites []models.ProfileInvite, now time.Time) []InviteDTO {
	out := make([]InviteDTO, 0, len(invites))
	for i := range invites {
		out = append(out, *FromModel(&invites[i], now))
	}
	return out
}
