package controllers

import (
	"net/http"

	"github.com/scoutfund/troopsales-backend/api/responses"
	"github.com/scoutfund/troopsales-backend/pkg/config"
	"github.com/scoutfund/troopsales-backend/pkg/db"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
	"github.com/scoutfund/troopsales-backend/pkg/redis"
)

// HealthLive reports process liveness only.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Troopsales-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports whether the API's dependencies answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, database db.Pinger, redisClient redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Troopsales-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if database != nil {
			if err := database.Ping(r.Context()); err != nil {
				checks["postgres"] = err.Error()
				healthy = false
			} else {
				checks["postgres"] = "ok"
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
