package shares

import (
	"time"

	"github.com/google/uuid"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// ShareDTO is the API shape of a profile share.
type ShareDTO struct {
	ProfileID          uuid.UUID `json:"profile_id"`
	TargetAccountID    uuid.UUID `json:"target_account_id"`
	Permissions        []string  `json:"permissions"`
	CreatedByAccountID uuid.UUID `json:"created_by_account_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FromModel maps a share row to its DTO. Unknown stored permission values
// are dropped on the way out.
func FromModel(share *models.ProfileShare) *ShareDTO {
	if share == nil {
		return nil
	}
	return &ShareDTO{
		ProfileID:          share.ProfileID,
		TargetAccountID:    share.TargetAccountID,
		Permissions:        share.PermissionSet().Strings(),
		CreatedByAccountID: share.CreatedByAccountID,
		CreatedAt:          share.CreatedAt,
		UpdatedAt:          share.UpdatedAt,
	}
}

// FromModels maps a slice of share rows.
func FromModels(shares []models.ProfileShare) []ShareDTO {
	out := make([]ShareDTO, 0, len(shares))
	for i := range shares {
		out = append(out, *FromModel(&shares[i]))
	}
	return out
}
