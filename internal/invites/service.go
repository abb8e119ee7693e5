package invites

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/pkg/config"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	"github.com/scoutfund/troopsales-backend/pkg/enums"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
)

const codeBytes = 24

type invitesRepository interface {
	Create(ctx context.Context, invite *models.ProfileInvite) error
	FindByCode(ctx context.Context, code string) (*models.ProfileInvite, error)
	ConsumeTx(tx *gorm.DB, code string, accountID uuid.UUID, now time.Time) (bool, error)
	DeleteByCode(ctx context.Context, code string) error
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ProfileInvite, error)
}

type sharesStore interface {
	Find(ctx context.Context, profileID, targetAccountID uuid.UUID) (*models.ProfileShare, error)
	FindTx(tx *gorm.DB, profileID, targetAccountID uuid.UUID) (*models.ProfileShare, error)
	UpsertTx(tx *gorm.DB, share *models.ProfileShare) error
}

type resolver interface {
	ResolveFresh(ctx context.Context, profileID, accountID uuid.UUID) (authz.Decision, error)
	InvalidateDecision(ctx context.Context, profileID, accountID uuid.UUID)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages invite links: single-use, expiring offers that turn into
// profile shares when redeemed.
type Service interface {
	Create(ctx context.Context, callerID, profileID uuid.UUID, input CreateInviteInput) (*InviteDTO, error)
	Redeem(ctx context.Context, callerID uuid.UUID, code string) (*RedemptionDTO, error)
	Revoke(ctx context.Context, callerID uuid.UUID, code string) error
	ListByProfile(ctx context.Context, callerID, profileID uuid.UUID) ([]InviteDTO, error)
}

type service struct {
	repo     invitesRepository
	shares   sharesStore
	resolver resolver
	tx       txRunner
	cfg      config.InvitesConfig
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams collects the service dependencies.
type ServiceParams struct {
	Repo     invitesRepository
	Shares   sharesStore
	Resolver resolver
	Tx       txRunner
	Config   config.InvitesConfig
	Logger   *logger.Logger

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewService builds an invite service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invites repository required")
	}
	if params.Shares == nil {
		return nil, fmt.Errorf("shares repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		shares:   params.Shares,
		resolver: params.Resolver,
		tx:       params.Tx,
		cfg:      params.Config,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// CreateInviteInput carries the fields for a new invite.
type CreateInviteInput struct {
	Permissions []string
	TTL         time.Duration
}

// RedemptionDTO describes the share a redeemed invite produced.
type RedemptionDTO struct {
	ProfileID   uuid.UUID `json:"profile_id"`
	Permissions []string  `json:"permissions"`
}

func (s *service) Create(ctx context.Context, callerID, profileID uuid.UUID, input CreateInviteInput) (*InviteDTO, error) {
	perms, err := enums.ParsePermissionSet(input.Permissions)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid permissions")
	}
	if perms.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invite requires at least one permission")
	}
	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	if s.cfg.MaxTTL > 0 && ttl > s.cfg.MaxTTL {
		ttl = s.cfg.MaxTTL
	}

	if err := s.requireOwner(ctx, profileID, callerID); err != nil {
		return nil, err
	}

	code, err := newCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invite code")
	}

	now := s.now()
	invite := &models.ProfileInvite{
		Code:               code,
		ProfileID:          profileID,
		Permissions:        perms.Strings(),
		ExpiresAt:          now.Add(ttl),
		CreatedByAccountID: callerID,
	}
	if err := s.repo.Create(ctx, invite); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist invite")
	}

	if s.logg != nil {
		logCtx := s.logg.WithProfileID(ctx, profileID.String())
		logCtx = s.logg.WithInviteCode(logCtx, code)
		s.logg.Info(logCtx, "invite created")
	}
	return FromModel(invite, now), nil
}

func (s *service) Redeem(ctx context.Context, callerID uuid.UUID, code string) (*RedemptionDTO, error) {
	invite, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invite not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invite")
	}

	// Owners already hold every permission; letting them consume the
	// invite would only burn it for the intended recipient.
	ownerDecision, err := s.resolver.ResolveFresh(ctx, invite.ProfileID, callerID)
	if err != nil {
		return nil, err
	}
	if ownerDecision.IsOwner() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot redeem an invite to your own profile")
	}

	now := s.now()
	switch invite.State(now) {
	case enums.InviteStateExpired:
		return nil, pkgerrors.New(pkgerrors.CodeExpired, "invite has expired")
	case enums.InviteStateRedeemed:
		return s.redeemedOutcome(ctx, invite, callerID)
	}

	var merged enums.PermissionSet
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		won, err := s.repo.ConsumeTx(tx, code, callerID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume invite")
		}
		if !won {
			// Another redemption landed between our read and this update.
			return pkgerrors.New(pkgerrors.CodeAlreadyUsed, "invite has already been used")
		}

		merged = invite.PermissionSet()
		existing, err := s.shares.FindTx(tx, invite.ProfileID, callerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing share")
		}
		if existing != nil {
			// Redemption widens an existing grant, never narrows it.
			merged = existing.PermissionSet().Merge(merged)
		}

		share := &models.ProfileShare{
			ProfileID:          invite.ProfileID,
			TargetAccountID:    callerID,
			Permissions:        merged.Strings(),
			CreatedByAccountID: invite.CreatedByAccountID,
		}
		return s.shares.UpsertTx(tx, share)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem invite")
	}

	// Drop any cached denial so the fresh grant is usable immediately.
	s.resolver.InvalidateDecision(ctx, invite.ProfileID, callerID)

	if s.logg != nil {
		logCtx := s.logg.WithProfileID(ctx, invite.ProfileID.String())
		logCtx = s.logg.WithInviteCode(logCtx, code)
		s.logg.Info(logCtx, "invite redeemed")
	}
	return &RedemptionDTO{
		ProfileID:   invite.ProfileID,
		Permissions: merged.Strings(),
	}, nil
}

// redeemedOutcome answers a redeem attempt against an already-consumed
// invite. Consumption is single-use for everyone, the original redeemer
// included; the grant itself lives on as the share the redemption wrote,
// which is also checked here for consistency.
func (s *service) redeemedOutcome(ctx context.Context, invite *models.ProfileInvite, callerID uuid.UUID) (*RedemptionDTO, error) {
	if invite.ConsumedByID != nil && *invite.ConsumedByID == callerID {
		if _, err := s.shares.Find(ctx, invite.ProfileID, callerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The consume and the share write share a transaction, so a
				// consumed invite without its share means corrupted state.
				return nil, pkgerrors.New(pkgerrors.CodeInternal, "invite consumed but share is missing")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load redeemed share")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeAlreadyUsed, "invite has already been used")
}

func (s *service) Revoke(ctx context.Context, callerID uuid.UUID, code string) error {
	invite, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Already gone; revoking twice converges on the same state.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invite")
	}

	if err := s.requireOwner(ctx, invite.ProfileID, callerID); err != nil {
		return err
	}
	if invite.Consumed {
		return pkgerrors.New(pkgerrors.CodeAlreadyUsed, "invite has already been used")
	}

	if err := s.repo.DeleteByCode(ctx, code); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke invite")
	}
	return nil
}

func (s *service) ListByProfile(ctx context.Context, callerID, profileID uuid.UUID) ([]InviteDTO, error) {
	if err := s.requireOwner(ctx, profileID, callerID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invites")
	}
	return FromModels(rows, s.now()), nil
}

// requireOwner checks ownership against the primary store; invite management
// is a grant-shaped operation and must not trust a cached decision.
func (s *service) requireOwner(ctx context.Context, profileID, callerID uuid.UUID) error {
	decision, err := s.resolver.ResolveFresh(ctx, profileID, callerID)
	if err != nil {
		return err
	}
	if decision.Denied() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	if !decision.IsOwner() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner may manage invites")
	}
	return nil
}

func newCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
