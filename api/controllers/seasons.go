package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/scoutfund/troopsales-backend/api/responses"
	"github.com/scoutfund/troopsales-backend/api/validators"
	"github.com/scoutfund/troopsales-backend/internal/seasons"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
)

type seasonCreateRequest struct {
	CatalogID uuid.UUID  `json:"catalog_id" validate:"required"`
	Name      string     `json:"name" validate:"required,min=1,max=120"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
}

type seasonUpdateRequest struct {
	Name     string     `json:"name" validate:"required,min=1,max=120"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}

// SeasonCreate opens a new selling season under the profile.
func SeasonCreate(svc seasons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profileID, err := pathUUID(r, "profileID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body seasonCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), caller, profileID, seasons.CreateSeasonInput{
			CatalogID: body.CatalogID,
			Name:      validators.SanitizeString(body.Name, 120),
			StartsAt:  body.StartsAt,
			EndsAt:    body.EndsAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// SeasonGet returns one season the caller can read.
func SeasonGet(svc seasons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		seasonID, err := pathUUID(r, "seasonID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), caller, seasonID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// SeasonList returns the profile's seasons.
func SeasonList(svc seasons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profileID, err := pathUUID(r, "profileID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dtos, err := svc.ListByProfile(r.Context(), caller, profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dtos)
	}
}

// SeasonUpdate adjusts the season's name and window.
func SeasonUpdate(svc seasons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		seasonID, err := pathUUID(r, "seasonID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body seasonUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Update(r.Context(), caller, seasonID, seasons.UpdateSeasonInput{
			Name:     validators.SanitizeString(body.Name, 120),
			StartsAt: body.StartsAt,
			EndsAt:   body.EndsAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// SeasonDelete removes the season and its orders.
func SeasonDelete(svc seasons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		seasonID, err := pathUUID(r, "seasonID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), caller, seasonID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
