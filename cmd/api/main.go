package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scoutfund/troopsales-backend/api/routes"
	"github.com/scoutfund/troopsales-backend/internal/accounts"
	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/internal/catalogs"
	"github.com/scoutfund/troopsales-backend/internal/invites"
	"github.com/scoutfund/troopsales-backend/internal/orders"
	"github.com/scoutfund/troopsales-backend/internal/pipeline"
	"github.com/scoutfund/troopsales-backend/internal/profiles"
	"github.com/scoutfund/troopsales-backend/internal/seasons"
	"github.com/scoutfund/troopsales-backend/internal/shares"
	"github.com/scoutfund/troopsales-backend/pkg/auth/session"
	"github.com/scoutfund/troopsales-backend/pkg/config"
	"github.com/scoutfund/troopsales-backend/pkg/db"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
	"github.com/scoutfund/troopsales-backend/pkg/metrics"
	"github.com/scoutfund/troopsales-backend/pkg/migrate"
	"github.com/scoutfund/troopsales-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	executor := pipeline.NewExecutor(logg, metrics.NewPipelineMetrics(registry))

	gormDB := dbClient.DB()
	accountsRepo := accounts.NewRepository(gormDB)
	profilesRepo := profiles.NewRepository(gormDB)
	sharesRepo := shares.NewRepository(gormDB)
	invitesRepo := invites.NewRepository(gormDB)
	seasonsRepo := seasons.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	catalogsRepo := catalogs.NewRepository(gormDB)

	decisionCache := authz.NewRedisDecisionCache(redisClient, logg, cfg.Authz.CacheTTL)
	resolver, err := authz.NewResolver(profilesRepo, sharesRepo, decisionCache, cfg.Authz)
	if err != nil {
		logg.Error(context.Background(), "failed to create authz resolver", err)
		os.Exit(1)
	}

	cascade, err := profiles.NewCascade(profiles.CascadeParams{
		Profiles: profilesRepo,
		Shares:   sharesRepo,
		Invites:  invitesRepo,
		Seasons:  seasonsRepo,
		Orders:   ordersRepo,
		Tx:       dbClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create profile cascade", err)
		os.Exit(1)
	}

	profilesSvc, err := profiles.NewService(profiles.ServiceParams{
		Repo:     profilesRepo,
		Resolver: resolver,
		Shares:   sharesRepo,
		Cascade:  cascade,
		Executor: executor,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create profiles service", err)
		os.Exit(1)
	}

	sharesSvc, err := shares.NewService(shares.ServiceParams{
		Repo:     sharesRepo,
		Accounts: accountsRepo,
		Resolver: resolver,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create shares service", err)
		os.Exit(1)
	}

	invitesSvc, err := invites.NewService(invites.ServiceParams{
		Repo:     invitesRepo,
		Shares:   sharesRepo,
		Resolver: resolver,
		Tx:       dbClient,
		Config:   cfg.Invites,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invites service", err)
		os.Exit(1)
	}

	seasonsSvc, err := seasons.NewService(seasons.ServiceParams{
		Repo:     seasonsRepo,
		Catalogs: catalogsRepo,
		Orders:   ordersRepo,
		Resolver: resolver,
		Executor: executor,
		Tx:       dbClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seasons service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Seasons:  seasonsRepo,
		Products: catalogsRepo,
		Resolver: resolver,
		Executor: executor,
		Tx:       dbClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	catalogsSvc, err := catalogs.NewService(catalogsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalogs service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Sessions:     sessionManager,
			Accounts:     accountsRepo,
			Profiles:     profilesSvc,
			Shares:       sharesSvc,
			Invites:      invitesSvc,
			Seasons:      seasonsSvc,
			Orders:       ordersSvc,
			Catalogs:     catalogsSvc,
			MetricsGathr: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
