package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/pkg/config"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	"github.com/scoutfund/troopsales-backend/pkg/enums"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
)

type profilesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error)
}

type sharesRepository interface {
	Find(ctx context.Context, profileID, targetAccountID uuid.UUID) (*models.ProfileShare, error)
}

// DecisionCache caches resolved decisions for a short TTL. Implementations
// are best-effort: a cache failure must degrade to a fresh lookup, never to
// a denial.
type DecisionCache interface {
	Get(ctx context.Context, profileID, accountID uuid.UUID) (*Decision, bool)
	Put(ctx context.Context, profileID, accountID uuid.UUID, decision Decision)
	Invalidate(ctx context.Context, profileID, accountID uuid.UUID)
}

// Resolver computes the effective permission outcome for a caller on a
// profile. Every handler in the service authorizes through this one type so
// the owner/shared/denied logic cannot drift between resources.
type Resolver struct {
	profiles profilesRepository
	shares   sharesRepository
	cache    DecisionCache
	cfg      config.AuthzConfig
}

// NewResolver builds a resolver. The cache is optional.
func NewResolver(profiles profilesRepository, shares sharesRepository, cache DecisionCache, cfg config.AuthzConfig) (*Resolver, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if shares == nil {
		return nil, fmt.Errorf("shares repository required")
	}
	return &Resolver{
		profiles: profiles,
		shares:   shares,
		cache:    cache,
		cfg:      cfg,
	}, nil
}

// Resolve returns the caller's decision for the profile, consulting the
// decision cache first. Cached results may lag a grant or revocation by up
// to the cache TTL; callers that cannot tolerate that use ResolveFresh.
func (r *Resolver) Resolve(ctx context.Context, profileID, accountID uuid.UUID) (Decision, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, profileID, accountID); ok {
			return *cached, nil
		}
	}

	decision, err := r.resolveUncached(ctx, profileID, accountID)
	if err != nil {
		return Decision{}, err
	}

	if r.cache != nil {
		r.cache.Put(ctx, profileID, accountID, decision)
	}
	return decision, nil
}

// ResolveFresh bypasses the cache and reads the share row by primary key.
// Used before sensitive operations (profile deletion, share administration)
// where acting on a stale grant is unacceptable.
func (r *Resolver) ResolveFresh(ctx context.Context, profileID, accountID uuid.UUID) (Decision, error) {
	return r.resolveUncached(ctx, profileID, accountID)
}

func (r *Resolver) resolveUncached(ctx context.Context, profileID, accountID uuid.UUID) (Decision, error) {
	profile, err := r.profiles.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A missing profile resolves to no access, not an error: read
			// callers must not distinguish absent from forbidden.
			return Decision{Role: RoleNone}, nil
		}
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}

	if profile.OwnerAccountID == accountID {
		return Decision{
			Role:        RoleOwner,
			Permissions: enums.PermissionSet{enums.PermissionRead, enums.PermissionWrite},
		}, nil
	}

	share, err := r.shares.Find(ctx, profileID, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Decision{Role: RoleNone}, nil
		}
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load share")
	}

	perms := share.PermissionSet()
	if perms.IsEmpty() {
		// A share that grants nothing is indistinguishable from no share.
		return Decision{Role: RoleNone}, nil
	}

	return Decision{Role: RoleShared, Permissions: perms}, nil
}

// Require resolves and enforces the required permission, returning a
// FORBIDDEN error on denial.
func (r *Resolver) Require(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (Decision, error) {
	decision, err := r.Resolve(ctx, profileID, accountID)
	if err != nil {
		return Decision{}, err
	}
	if !decision.Allows(required) {
		return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient profile access")
	}
	return decision, nil
}

// RequireFresh is Require without the cache fast path.
func (r *Resolver) RequireFresh(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (Decision, error) {
	decision, err := r.ResolveFresh(ctx, profileID, accountID)
	if err != nil {
		return Decision{}, err
	}
	if !decision.Allows(required) {
		return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient profile access")
	}
	return decision, nil
}

// RequireWithRetry retries denials with bounded exponential backoff. It
// exists for grant-then-use flows where a freshly written share may not be
// visible yet; after the retry budget is spent the denial stands.
func (r *Resolver) RequireWithRetry(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (Decision, error) {
	backoff := retry.NewExponential(r.cfg.RetryBase)
	backoff = retry.WithMaxDuration(r.cfg.RetryMaxElapsed, backoff)

	var decision Decision
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reqErr error
		decision, reqErr = r.RequireFresh(ctx, profileID, accountID, required)
		if reqErr == nil {
			return nil
		}
		if pkgerrors.IsCode(reqErr, pkgerrors.CodeForbidden) {
			return retry.RetryableError(reqErr)
		}
		return reqErr
	})
	if err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// InvalidateDecision drops any cached decision for the pair. Best effort:
// a failure here only extends the staleness window, it cannot grant access.
func (r *Resolver) InvalidateDecision(ctx context.Context, profileID, accountID uuid.UUID) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, profileID, accountID)
	}
}
