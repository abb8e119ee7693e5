package seasons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/internal/pipeline"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	"github.com/scoutfund/troopsales-backend/pkg/enums"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
)

type seasonsRepository interface {
	Create(ctx context.Context, season *models.Season) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Season, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Season, error)
	Update(ctx context.Context, season *models.Season) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
}

type catalogsFinder interface {
	CountByID(ctx context.Context, id uuid.UUID) (int64, error)
}

type ordersStore interface {
	DeleteItemsBySeasonTx(tx *gorm.DB, seasonID uuid.UUID) error
	DeleteBySeasonTx(tx *gorm.DB, seasonID uuid.UUID) error
}

type resolver interface {
	Resolve(ctx context.Context, profileID, accountID uuid.UUID) (authz.Decision, error)
	Require(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (authz.Decision, error)
	RequireWithRetry(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (authz.Decision, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages selling seasons under a profile.
type Service interface {
	Create(ctx context.Context, callerID, profileID uuid.UUID, input CreateSeasonInput) (*SeasonDTO, error)
	Get(ctx context.Context, callerID, seasonID uuid.UUID) (*SeasonDTO, error)
	ListByProfile(ctx context.Context, callerID, profileID uuid.UUID) ([]SeasonDTO, error)
	Update(ctx context.Context, callerID, seasonID uuid.UUID, input UpdateSeasonInput) (*SeasonDTO, error)
	Delete(ctx context.Context, callerID, seasonID uuid.UUID) error
}

type service struct {
	repo     seasonsRepository
	catalogs catalogsFinder
	orders   ordersStore
	resolver resolver
	executor *pipeline.Executor
	tx       txRunner
	logg     *logger.Logger
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo     seasonsRepository
	Catalogs catalogsFinder
	Orders   ordersStore
	Resolver resolver
	Executor *pipeline.Executor
	Tx       txRunner
	Logger   *logger.Logger
}

// NewService builds a season service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("seasons repository required")
	}
	if params.Catalogs == nil {
		return nil, fmt.Errorf("catalogs repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if params.Executor == nil {
		return nil, fmt.Errorf("pipeline executor required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		catalogs: params.Catalogs,
		orders:   params.Orders,
		resolver: params.Resolver,
		executor: params.Executor,
		tx:       params.Tx,
		logg:     params.Logger,
	}, nil
}

// CreateSeasonInput carries the fields for a new season.
type CreateSeasonInput struct {
	CatalogID uuid.UUID
	Name      string
	StartsAt  *time.Time
	EndsAt    *time.Time
}

// UpdateSeasonInput carries the mutable season fields.
type UpdateSeasonInput struct {
	Name     string
	StartsAt *time.Time
	EndsAt   *time.Time
}

func (s *service) Create(ctx context.Context, callerID, profileID uuid.UUID, input CreateSeasonInput) (*SeasonDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "season name is required")
	}
	if input.CatalogID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog is required")
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "season cannot end before it starts")
	}

	st, err := s.executor.Execute(ctx, callerID,
		pipeline.UseProfile(profileID),
		pipeline.Authorize(s.resolver, enums.PermissionWrite),
		pipeline.Check("check_catalog", func(ctx context.Context, _ *pipeline.State) error {
			count, err := s.catalogs.CountByID(ctx, input.CatalogID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check catalog")
			}
			if count == 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "catalog not found")
			}
			return nil
		}),
		pipeline.Mutate("create_season", func(ctx context.Context, st *pipeline.State) error {
			season := &models.Season{
				ProfileID: profileID,
				CatalogID: input.CatalogID,
				Name:      name,
				StartsAt:  input.StartsAt,
				EndsAt:    input.EndsAt,
			}
			if err := s.repo.Create(ctx, season); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create season")
			}
			st.Result = FromModel(season)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return st.Result.(*SeasonDTO), nil
}

func (s *service) Get(ctx context.Context, callerID, seasonID uuid.UUID) (*SeasonDTO, error) {
	season, err := s.repo.FindByID(ctx, seasonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "season not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load season")
	}

	decision, err := s.resolver.Resolve(ctx, season.ProfileID, callerID)
	if err != nil {
		return nil, err
	}
	if !decision.Allows(enums.PermissionRead) {
		// Absent and forbidden collapse to the same not-found outcome.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "season not found")
	}
	return FromModel(season), nil
}

func (s *service) ListByProfile(ctx context.Context, callerID, profileID uuid.UUID) ([]SeasonDTO, error) {
	decision, err := s.resolver.Resolve(ctx, profileID, callerID)
	if err != nil {
		return nil, err
	}
	if !decision.Allows(enums.PermissionRead) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}

	rows, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seasons")
	}
	return FromModels(rows), nil
}

func (s *service) Update(ctx context.Context, callerID, seasonID uuid.UUID, input UpdateSeasonInput) (*SeasonDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "season name is required")
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "season cannot end before it starts")
	}

	st, err := s.executor.Execute(ctx, callerID,
		pipeline.LookupSeason(s.repo, seasonID),
		pipeline.Authorize(s.resolver, enums.PermissionWrite),
		pipeline.Mutate("update_season", func(ctx context.Context, st *pipeline.State) error {
			season := st.Season
			season.Name = name
			season.StartsAt = input.StartsAt
			season.EndsAt = input.EndsAt
			if err := s.repo.Update(ctx, season); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update season")
			}
			st.Result = FromModel(season)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return st.Result.(*SeasonDTO), nil
}

func (s *service) Delete(ctx context.Context, callerID, seasonID uuid.UUID) error {
	// No existence pre-check: the lookup step answers FORBIDDEN for absent
	// and inaccessible alike, so a delete call never reveals whether an ID exists.
	_, err := s.executor.Execute(ctx, callerID,
		pipeline.LookupSeason(s.repo, seasonID),
		pipeline.Authorize(s.resolver, enums.PermissionWrite),
		pipeline.Mutate("delete_season", func(ctx context.Context, _ *pipeline.State) error {
			// Orders under the season go with it, leaf first.
			err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
				if err := s.orders.DeleteItemsBySeasonTx(tx, seasonID); err != nil {
					return fmt.Errorf("delete order items: %w", err)
				}
				if err := s.orders.DeleteBySeasonTx(tx, seasonID); err != nil {
					return fmt.Errorf("delete orders: %w", err)
				}
				if err := s.repo.DeleteTx(tx, seasonID); err != nil {
					return fmt.Errorf("delete season: %w", err)
				}
				return nil
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete season")
			}
			return nil
		}),
	)
	return err
}
