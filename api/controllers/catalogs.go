package controllers

import (
	"net/http"

	"github.com/scoutfund/troopsales-backend/api/responses"
	"github.com/scoutfund/troopsales-backend/internal/catalogs"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
)

// CatalogList returns every seeded catalog.
func CatalogList(svc catalogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dtos, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dtos)
	}
}

// CatalogGet returns one catalog.
func CatalogGet(svc catalogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalogID, err := pathUUID(r, "catalogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), catalogID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// CatalogProducts returns the catalog's sellable items.
func CatalogProducts(svc catalogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalogID, err := pathUUID(r, "catalogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dtos, err := svc.ListProducts(r.Context(), catalogID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dtos)
	}
}
