package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// ProfileDTO is the API shape of a seller profile.
type ProfileDTO struct {
	ID             uuid.UUID `json:"id"`
	OwnerAccountID uuid.UUID `json:"owner_account_id"`
	SellerName     string    `json:"seller_name"`
	Access         string    `json:"access,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FromModel maps a profile row to its DTO.
func FromModel(profile *models.SellerProfile) *ProfileDTO {
	if profile == nil {
		return nil
	}
	return &ProfileDTO{
		ID:             profile.ID,
		OwnerAccountID: profile.OwnerAccountID,
		SellerName:     profile.SellerName,
		CreatedAt:      profile.CreatedAt,
		UpdatedAt:      profile.UpdatedAt,
	}
}

// WithAccess annotates the DTO with the caller's resolved role.
func (d *ProfileDTO) WithAccess(decision authz.Decision) *ProfileDTO {
	if d == nil {
		return nil
	}
	d.Access = string(decision.Role)
	return d
}
