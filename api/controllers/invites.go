package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scoutfund/troopsales-backend/api/responses"
	"github.com/scoutfund/troopsales-backend/api/validators"
	"github.com/scoutfund/troopsales-backend/internal/invites"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
)

type inviteCreateRequest struct {
	Permissions []string `json:"permissions" validate:"required,min=1,dive,oneof=READ WRITE"`
	TTLHours    int      `json:"ttl_hours" validate:"omitempty,min=1"`
}

// InviteCreate issues a single-use invite link for the profile.
func InviteCreate(svc invites.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body inviteCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), caller, profileID, invites.CreateInviteInput{
			Permissions: body.Permissions,
			TTL:         time.Duration(body.TTLHours) * time.Hour,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// InviteRedeem consumes an invite code on behalf of the caller.
func InviteRedeem(svc invites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code := chi.URLParam(r, "code")
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invite code is required"))
			return
		}

		dto, err := svc.Redeem(r.Context(), caller, code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// InviteRevoke deletes an unconsumed invite.
func InviteRevoke(svc invites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code := chi.URLParam(r, "code")
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invite code is required"))
			return
		}

		if err := svc.Revoke(r.Context(), caller, code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "revoked"})
	}
}

// InviteList returns the invites on a profile the caller owns.
func InviteList(svc invites.Service, logg *logger.Logger) http.HandlerFunc {
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
