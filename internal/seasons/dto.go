package seasons

import (
	"time"

	"github.com/google/uuid"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

// SeasonDTO is the API shape of a selling season.
type SeasonDTO struct {
	ID        uuid.UUID  `json:"id"`
	ProfileID uuid.UUID  `json:"profile_id"`
	CatalogID uuid.UUID  `json:"catalog_id"`
	Name      string     `json:"name"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FromModel maps a season row to its DTO.
func FromModel(season *models.Season) *SeasonDTO {
	if season == nil {
		return nil
	}
	return &SeasonDTO{
		ID:        season.ID,
		ProfileID: season.ProfileID,
		CatalogID: season.CatalogID,
		Name:      season.Name,
		StartsAt:  season.StartsAt,
		EndsAt:    season.EndsAt,
		CreatedAt: season.CreatedAt,
		UpdatedAt: season.UpdatedAt,
	}
}

// FromModels maps a slice of season rows.
func FromModels(seasons []models.Season) []SeasonDTO {
	out := make([]SeasonDTO, 0, len(seasons))
	for i := range seasons {
		out = append(out, *FromModel(&seasons[i]))
	}
	return out
}
