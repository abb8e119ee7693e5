package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/internal/pipeline"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	"github.com/scoutfund/troopsales-backend/pkg/enums"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
)

type profilesRepository interface {
	Create(ctx context.Context, profile *models.SellerProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.SellerProfile, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.SellerProfile, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	CountByID(ctx context.Context, id uuid.UUID) (int64, error)
}

type resolver interface {
	Resolve(ctx context.Context, profileID, accountID uuid.UUID) (authz.Decision, error)
	ResolveFresh(ctx context.Context, profileID, accountID uuid.UUID) (authz.Decision, error)
	Require(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (authz.Decision, error)
	RequireWithRetry(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (authz.Decision, error)
	InvalidateDecision(ctx context.Context, profileID, accountID uuid.UUID)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sharedProfilesLister interface {
	ListProfileIDsByTarget(ctx context.Context, targetAccountID uuid.UUID) ([]uuid.UUID, error)
}

// Service exposes seller profile operations, including the cascade that
// removes everything beneath a deleted profile.
type Service interface {
	Create(ctx context.Context, callerID uuid.UUID, input CreateProfileInput) (*ProfileDTO, error)
	Get(ctx context.Context, callerID, profileID uuid.UUID) (*ProfileDTO, error)
	ListMine(ctx context.Context, callerID uuid.UUID) ([]ProfileDTO, error)
	Update(ctx context.Context, callerID, profileID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)
	Delete(ctx context.Context, callerID, profileID uuid.UUID) error
}

type service struct {
	repo     profilesRepository
	resolver resolver
	shares   sharedProfilesLister
	cascade  *Cascade
	executor *pipeline.Executor
	logg     *logger.Logger
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo     profilesRepository
	Resolver resolver
	Shares   sharedProfilesLister
	Cascade  *Cascade
	Executor *pipeline.Executor
	Logger   *logger.Logger
}

// NewService builds a profile service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if params.Shares == nil {
		return nil, fmt.Errorf("shares repository required")
	}
	if params.Cascade == nil {
		return nil, fmt.Errorf("cascade coordinator required")
	}
	if params.Executor == nil {
		return nil, fmt.Errorf("pipeline executor required")
	}
	return &service{
		repo:     params.Repo,
		resolver: params.Resolver,
		shares:   params.Shares,
		cascade:  params.Cascade,
		executor: params.Executor,
		logg:     params.Logger,
	}, nil
}

// CreateProfileInput carries the fields for a new profile.
type CreateProfileInput struct {
	SellerName string
}

// UpdateProfileInput carries the mutable profile fields.
type UpdateProfileInput struct {
	SellerName string
}

func (s *service) Create(ctx context.Context, callerID uuid.UUID, input CreateProfileInput) (*ProfileDTO, error) {
	name := strings.TrimSpace(input.SellerName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller name is required")
	}

	profile := &models.SellerProfile{
		OwnerAccountID: callerID,
		SellerName:     name,
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}
	return FromModel(profile).WithAccess(authz.Decision{Role: authz.RoleOwner}), nil
}

func (s *service) Get(ctx context.Context, callerID, profileID uuid.UUID) (*ProfileDTO, error) {
	decision, err := s.resolver.Resolve(ctx, profileID, callerID)
	if err != nil {
		return nil, err
	}
	if !decision.Allows(enums.PermissionRead) {
		// Absent and forbidden collapse to the same not-found outcome.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}

	profile, err := s.repo.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return FromModel(profile).WithAccess(decision), nil
}

func (s *service) ListMine(ctx context.Context, callerID uuid.UUID) ([]ProfileDTO, error) {
	owned, err := s.repo.FindByOwner(ctx, callerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owned profiles")
	}

	sharedIDs, err := s.shares.ListProfileIDsByTarget(ctx, callerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shared profiles")
	}
	shared, err := s.repo.FindByIDs(ctx, sharedIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shared profiles")
	}

	out := make([]ProfileDTO, 0, len(owned)+len(shared))
	for i := range owned {
		out = append(out, *FromModel(&owned[i]).WithAccess(authz.Decision{Role: authz.RoleOwner}))
	}
	for i := range shared {
		out = append(out, *FromModel(&shared[i]).WithAccess(authz.Decision{Role: authz.RoleShared}))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, callerID, profileID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	name := strings.TrimSpace(input.SellerName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller name is required")
	}

	st, err := s.executor.Execute(ctx, callerID,
		pipeline.UseProfile(profileID),
		pipeline.Authorize(s.resolver, enums.PermissionWrite),
		pipeline.Mutate("rename_profile", func(ctx context.Context, st *pipeline.State) error {
			if err := s.repo.UpdateName(ctx, profileID, name); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rename profile")
			}
			profile, err := s.repo.FindByID(ctx, profileID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload profile")
			}
			st.Result = FromModel(profile).WithAccess(*st.Decision)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return st.Result.(*ProfileDTO), nil
}

func (s *service) Delete(ctx context.Context, callerID, profileID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, profileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Already gone; retried deletions are no-op successes.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}

	// Deletion is destructive, so the owner check bypasses the decision
	// cache: acting on a stale grant here is unacceptable.
	decision, err := s.resolver.ResolveFresh(ctx, profileID, callerID)
	if err != nil {
		return err
	}
	if !decision.IsOwner() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner may delete a profile")
	}

	return s.cascade.Run(ctx, profileID, s.resolver)
}
