package profiles

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
)

type cascadeSharesRepo interface {
	ListTargetsByProfile(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error)
	ListProfileIDsByTarget(ctx context.Context, targetAccountID uuid.UUID) ([]uuid.UUID, error)
	DeleteByProfileTx(tx *gorm.DB, profileID uuid.UUID) error
	CountByProfile(ctx context.Context, profileID uuid.UUID) (int64, error)
}

type cascadeInvitesRepo interface {
	DeleteByProfileTx(tx *gorm.DB, profileID uuid.UUID) error
	CountByProfile(ctx context.Context, profileID uuid.UUID) (int64, error)
}

type cascadeSeasonsRepo interface {
	DeleteByProfileTx(tx *gorm.DB, profileID uuid.UUID) error
	CountByProfile(ctx context.Context, profileID uuid.UUID) (int64, error)
}

type cascadeOrdersRepo interface {
	DeleteItemsByProfileTx(tx *gorm.DB, profileID uuid.UUID) error
	DeleteByProfileTx(tx *gorm.DB, profileID uuid.UUID) error
	CountByProfile(ctx context.Context, profileID uuid.UUID) (int64, error)
}

type decisionInvalidator interface {
	InvalidateDecision(ctx context.Context, profileID, accountID uuid.UUID)
}

// Cascade removes everything beneath a profile leaf-to-root so no
// authorization record can outlive the resource it grants access to. Every
// step is an idempotent bulk delete, so a failed run is safely retried
// end to end.
type Cascade struct {
	profiles profilesRepository
	shares   cascadeSharesRepo
	invites  cascadeInvitesRepo
	seasons  cascadeSeasonsRepo
	orders   cascadeOrdersRepo
	tx       txRunner
	logg     *logger.Logger
}

// CascadeParams collects the coordinator dependencies.
type CascadeParams struct {
	Profiles profilesRepository
	Shares   cascadeSharesRepo
	Invites  cascadeInvitesRepo
	Seasons  cascadeSeasonsRepo
	Orders   cascadeOrdersRepo
	Tx       txRunner
	Logger   *logger.Logger
}

// NewCascade builds the deletion coordinator.
func NewCascade(params CascadeParams) (*Cascade, error) {
	if params.Profiles == nil || params.Shares == nil || params.Invites == nil ||
		params.Seasons == nil || params.Orders == nil {
		return nil, fmt.Errorf("all cascade repositories are required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Cascade{
		profiles: params.Profiles,
		shares:   params.Shares,
		invites:  params.Invites,
		seasons:  params.Seasons,
		orders:   params.Orders,
		tx:       params.Tx,
		logg:     params.Logger,
	}, nil
}

// Run deletes the profile's dependents and then the profile itself.
// Authorization has already happened; Run only sequences the removal.
// Catalogs are independently owned and never touched here.
func (c *Cascade) Run(ctx context.Context, profileID uuid.UUID, invalidator decisionInvalidator) error {
	// Capture share targets up front: after the delete there is nobody
	// left to enumerate for cache invalidation.
	targets, err := c.shares.ListTargetsByProfile(ctx, profileID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list share targets")
	}

	err = c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := c.orders.DeleteItemsByProfileTx(tx, profileID); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		if err := c.orders.DeleteByProfileTx(tx, profileID); err != nil {
			return fmt.Errorf("delete orders: %w", err)
		}
		if err := c.seasons.DeleteByProfileTx(tx, profileID); err != nil {
			return fmt.Errorf("delete seasons: %w", err)
		}
		if err := c.shares.DeleteByProfileTx(tx, profileID); err != nil {
			return fmt.Errorf("delete shares: %w", err)
		}
		if err := c.invites.DeleteByProfileTx(tx, profileID); err != nil {
			return fmt.Errorf("delete invites: %w", err)
		}
		if err := c.profiles.DeleteTx(tx, profileID); err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cascade deletion")
	}

	if verifyErr := c.verify(ctx, profileID); verifyErr != nil {
		// A partial cascade is an operator problem, not a retry loop:
		// surface it as fatal and let the caller rerun the deletion.
		return pkgerrors.Wrap(pkgerrors.CodeInternal, verifyErr, "cascade left orphaned rows")
	}

	if invalidator != nil {
		for _, target := range targets {
			invalidator.InvalidateDecision(ctx, profileID, target)
		}
	}

	if c.logg != nil {
		logCtx := c.logg.WithProfileID(ctx, profileID.String())
		c.logg.Info(logCtx, "profile cascade deleted")
	}
	return nil
}

func (c *Cascade) verify(ctx context.Context, profileID uuid.UUID) error {
	var errs error
	check := func(name string, count int64, err error) {
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("count %s: %w", name, err))
			return
		}
		if count > 0 {
			errs = multierr.Append(errs, fmt.Errorf("%d %s still reference profile %s", count, name, profileID))
		}
	}

	count, err := c.orders.CountByProfile(ctx, profileID)
	check("orders", count, err)
	count, err = c.seasons.CountByProfile(ctx, profileID)
	check("seasons", count, err)
	count, err = c.shares.CountByProfile(ctx, profileID)
	check("shares", count, err)
	count, err = c.invites.CountByProfile(ctx, profileID)
	check("invites", count, err)
	count, err = c.profiles.CountByID(ctx, profileID)
	check("profiles", count, err)

	return errs
}
