package shares

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	"github.com/scoutfund/troopsales-backend/pkg/enums"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
)

type sharesRepository interface {
	Find(ctx context.Context, profileID, targetAccountID uuid.UUID) (*models.ProfileShare, error)
	Upsert(ctx context.Context, share *models.ProfileShare) error
	Delete(ctx context.Context, profileID, targetAccountID uuid.UUID) error
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ProfileShare, error)
	ListByTarget(ctx context.Context, targetAccountID uuid.UUID) ([]models.ProfileShare, error)
}

type accountsFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type resolver interface {
	Resolve(ctx context.Context, profileID, accountID uuid.UUID) (authz.Decision, error)
	ResolveFresh(ctx context.Context, profileID, accountID uuid.UUID) (authz.Decision, error)
	InvalidateDecision(ctx context.Context, profileID, accountID uuid.UUID)
}

// Service manages direct shares on seller profiles. Invite-based sharing
// lives in the invites package; both converge on the same share rows.
type Service interface {
	Share(ctx context.Context, callerID, profileID uuid.UUID, input ShareInput) (*ShareDTO, error)
	Revoke(ctx context.Context, callerID, profileID, targetAccountID uuid.UUID) error
	ListByProfile(ctx context.Context, callerID, profileID uuid.UUID) ([]ShareDTO, error)
	ListSharedWithMe(ctx context.Context, callerID uuid.UUID) ([]ShareDTO, error)
}

type service struct {
	repo     sharesRepository
	accounts accountsFinder
	resolver resolver
	logg     *logger.Logger
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo     sharesRepository
	Accounts accountsFinder
	Resolver resolver
	Logger   *logger.Logger
}

// NewService builds a share service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("shares repository required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	return &service{
		repo:     params.Repo,
		accounts: params.Accounts,
		resolver: params.Resolver,
		logg:     params.Logger,
	}, nil
}

// ShareInput carries the fields for a direct share.
type ShareInput struct {
	TargetEmail string
	Permissions []string
}

func (s *service) Share(ctx context.Context, callerID, profileID uuid.UUID, input ShareInput) (*ShareDTO, error) {
	perms, err := enums.ParsePermissionSet(input.Permissions)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid permissions")
	}
	if perms.IsEmpty() {
		// An empty grant would be indistinguishable from no share at all.
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "share requires at least one permission")
	}
	if strings.TrimSpace(input.TargetEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target email is required")
	}

	if err := s.requireOwner(ctx, profileID, callerID); err != nil {
		return nil, err
	}

	target, err := s.accounts.FindByEmail(ctx, input.TargetEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no account with that email")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up target account")
	}
	if target.ID == callerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot share a profile with its owner")
	}

	share := &models.ProfileShare{
		ProfileID:          profileID,
		TargetAccountID:    target.ID,
		Permissions:        perms.Strings(),
		CreatedByAccountID: callerID,
	}
	if err := s.repo.Upsert(ctx, share); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist share")
	}

	// The target may hold a cached denial or an older permission set.
	s.resolver.InvalidateDecision(ctx, profileID, target.ID)

	if s.logg != nil {
		logCtx := s.logg.WithProfileID(ctx, profileID.String())
		s.logg.Info(logCtx, "profile shared directly")
	}
	return FromModel(share), nil
}

func (s *service) Revoke(ctx context.Context, callerID, profileID, targetAccountID uuid.UUID) error {
	if err := s.requireOwner(ctx, profileID, callerID); err != nil {
		return err
	}

	// Revoking an absent share succeeds: the end state is identical.
	if err := s.repo.Delete(ctx, profileID, targetAccountID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke share")
	}
	s.resolver.InvalidateDecision(ctx, profileID, targetAccountID)
	return nil
}

func (s *service) ListByProfile(ctx context.Context, callerID, profileID uuid.UUID) ([]ShareDTO, error) {
	decision, err := s.resolver.Resolve(ctx, profileID, callerID)
	if err != nil {
		return nil, err
	}
	if !decision.Allows(enums.PermissionRead) {
		// Absent and forbidden collapse to the same not-found outcome.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}

	rows, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shares")
	}
	return FromModels(rows), nil
}

func (s *service) ListSharedWithMe(ctx context.Context, callerID uuid.UUID) ([]ShareDTO, error) {
	rows, err := s.repo.ListByTarget(ctx, callerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list received shares")
	}
	return FromModels(rows), nil
}

// requireOwner checks ownership against the primary store, not the decision
// cache: granting and revoking access must never act on a stale role.
func (s *service) requireOwner(ctx context.Context, profileID, callerID uuid.UUID) error {
	decision, err := s.resolver.ResolveFresh(ctx, profileID, callerID)
	if err != nil {
		return err
	}
	if decision.Denied() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	if !decision.IsOwner() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner may manage shares")
	}
	return nil
}
