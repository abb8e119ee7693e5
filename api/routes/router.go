package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scoutfund/troopsales-backend/api/controllers"
	"github.com/scoutfund/troopsales-backend/api/middleware"
	"github.com/scoutfund/troopsales-backend/internal/accounts"
	"github.com/scoutfund/troopsales-backend/internal/catalogs"
	"github.com/scoutfund/troopsales-backend/internal/invites"
	"github.com/scoutfund/troopsales-backend/internal/orders"
	"github.com/scoutfund/troopsales-backend/internal/profiles"
	"github.com/scoutfund/troopsales-backend/internal/seasons"
	"github.com/scoutfund/troopsales-backend/internal/shares"
	"github.com/scoutfund/troopsales-backend/pkg/auth/session"
	"github.com/scoutfund/troopsales-backend/pkg/config"
	"github.com/scoutfund/troopsales-backend/pkg/db"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
	"github.com/scoutfund/troopsales-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Generate(context.Context, string) (string, error)
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Deps collects everything the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	Sessions     sessionManager
	Accounts     *accounts.Repository
	Profiles     profiles.Service
	Shares       shares.Service
	Invites      invites.Service
	Seasons      seasons.Service
	Orders       orders.Service
	Catalogs     catalogs.Service
	MetricsGathr prometheus.Gatherer
}

// NewRouter assembles the HTTP surface.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.MetricsGathr != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGathr, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/logout", controllers.AuthLogout(deps.Sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Sessions, cfg.JWT, logg))
	})

	if !cfg.App.IsProd() {
		r.Post("/api/dev/v1/auth/token", controllers.DevToken(deps.Accounts, deps.Sessions, cfg.JWT, logg))
	}

	redeemPolicy := middleware.NewRateLimitPolicy(
		"invite_redeem",
		cfg.Invites.RedeemRateWindow,
		cfg.Invites.RedeemIPLimit,
		cfg.Invites.RedeemCodeLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", controllers.ProfileCreate(deps.Profiles, logg))
			r.Get("/", controllers.ProfileList(deps.Profiles, logg))

			r.Route("/{profileID}", func(r chi.Router) {
				r.Get("/", controllers.ProfileGet(deps.Profiles, logg))
				r.Put("/", controllers.ProfileUpdate(deps.Profiles, logg))
				r.Delete("/", controllers.ProfileDelete(deps.Profiles, logg))

				r.Route("/shares", func(r chi.Router) {
					r.Get("/", controllers.ShareList(deps.Shares, logg))
					r.Post("/", controllers.ShareCreate(deps.Shares, logg))
					r.Delete("/{accountID}", controllers.ShareRevoke(deps.Shares, logg))
				})

				r.Route("/invites", func(r chi.Router) {
					r.Get("/", controllers.InviteList(deps.Invites, logg))
					r.Post("/", controllers.InviteCreate(deps.Invites, logg))
				})

				r.Route("/seasons", func(r chi.Router) {
					r.Get("/", controllers.SeasonList(deps.Seasons, logg))
					r.Post("/", controllers.SeasonCreate(deps.Seasons, logg))
				})
			})
		})

		r.Get("/shares/mine", controllers.ShareListMine(deps.Shares, logg))

		r.Route("/invites/{code}", func(r chi.Router) {
			r.Delete("/", controllers.InviteRevoke(deps.Invites, logg))
			r.With(middleware.RateLimit(redeemPolicy, deps.Redis, logg)).
				Post("/redeem", controllers.InviteRedeem(deps.Invites, logg))
		})

		r.Route("/seasons/{seasonID}", func(r chi.Router) {
			r.Get("/", controllers.SeasonGet(deps.Seasons, logg))
			r.Put("/", controllers.SeasonUpdate(deps.Seasons, logg))
			r.Delete("/", controllers.SeasonDelete(deps.Seasons, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(deps.Orders, logg))
				r.Post("/", controllers.OrderCreate(deps.Orders, logg))
			})
		})

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Get("/", controllers.OrderGet(deps.Orders, logg))
			r.Patch("/status", controllers.OrderUpdateStatus(deps.Orders, logg))
			r.Delete("/", controllers.OrderDelete(deps.Orders, logg))
		})

		r.Route("/catalogs", func(r chi.Router) {
			r.Get("/", controllers.CatalogList(deps.Catalogs, logg))
			r.Get("/{catalogID}", controllers.CatalogGet(deps.Catalogs, logg))
			r.Get("/{catalogID}/products", controllers.CatalogProducts(deps.Catalogs, logg))
		})
	})

	return r
}
