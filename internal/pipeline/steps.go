package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	"github.com/scoutfund/troopsales-backend/pkg/enums"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
)

// Requirer is the authorization surface steps need from the resolver.
type Requirer interface {
	Require(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (authz.Decision, error)
	RequireWithRetry(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (authz.Decision, error)
}

type seasonFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Season, error)
}

type orderFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// UseProfile seeds the authorization subject directly, for operations
// addressed by profile ID.
func UseProfile(profileID uuid.UUID) Step {
	return Step{
		Name: "use_profile",
		Run: func(_ context.Context, st *State) error {
			st.ProfileID = profileID
			return nil
		},
	}
}

// LookupSeason resolves a season's profile so the authorize step has its
// subject. A missing season surfaces as FORBIDDEN: mutation callers learn
// they cannot act, not whether the ID exists.
func LookupSeason(repo seasonFinder, seasonID uuid.UUID) Step {
	return Step{
		Name: "lookup_season",
		Run: func(ctx context.Context, st *State) error {
			season, err := repo.FindByID(ctx, seasonID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient profile access")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load season")
			}
			st.Season = season
			st.ProfileID = season.ProfileID
			return nil
		},
	}
}

// LookupOrder resolves an order's profile for authorization.
func LookupOrder(repo orderFinder, orderID uuid.UUID) Step {
	return Step{
		Name: "lookup_order",
		Run: func(ctx context.Context, st *State) error {
			order, err := repo.FindByID(ctx, orderID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient profile access")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}
			st.Order = order
			st.ProfileID = order.ProfileID
			return nil
		},
	}
}

// Authorize checks the caller against the subject resolved by a prior step
// and records the decision on the state. A denial gets one bounded-backoff
// retry pass: a share granted moments ago may not have propagated to the
// cached lookup path yet, and writes behind it should tolerate that window.
func Authorize(resolver Requirer, required enums.Permission) Step {
	return Step{
		Name: "authorize",
		Run: func(ctx context.Context, st *State) error {
			if st.ProfileID == uuid.Nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "authorize step before subject lookup")
			}
			decision, err := resolver.Require(ctx, st.ProfileID, st.CallerID, required)
			if err != nil {
				if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
					return err
				}
				decision, err = resolver.RequireWithRetry(ctx, st.ProfileID, st.CallerID, required)
				if err != nil {
					return err
				}
			}
			st.Decision = &decision
			return nil
		},
	}
}

// Check runs a read-only validation against the accumulated state.
func Check(name string, fn func(ctx context.Context, st *State) error) Step {
	return Step{Name: name, Run: fn}
}

// Mutate is the single side-effecting tail of a pipeline.
func Mutate(name string, fn func(ctx context.Context, st *State) error) Step {
	return Step{Name: name, Mutates: true, Run: fn}
}
