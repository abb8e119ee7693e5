package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/api/responses"
	"github.com/scoutfund/troopsales-backend/api/validators"
	pkgAuth "github.com/scoutfund/troopsales-backend/pkg/auth"
	"github.com/scoutfund/troopsales-backend/pkg/auth/session"
	"github.com/scoutfund/troopsales-backend/pkg/config"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
)

type accountsByEmail interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type sessionGenerator interface {
	Generate(ctx context.Context, accessID string) (string, error)
}

type devTokenRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type devTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// DevToken mints a token pair for an existing account. Identity lives with
// the external provider in production; this endpoint only exists outside
// prod so local and staging clients can authenticate without it.
func DevToken(accounts accountsByEmail, sessions sessionGenerator, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body devTokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := accounts.FindByEmail(r.Context(), body.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no account with that email"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up account"))
			return
		}

		accessID := session.NewAccessID()
		refreshToken, err := sessions.Generate(r.Context(), accessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session"))
			return
		}

		accessToken, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
			AccountID: account.ID,
			Email:     account.Email,
			IsAdmin:   account.IsAdmin,
			JTI:       accessID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt"))
			return
		}

		responses.WriteSuccess(w, devTokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		})
	}
}
