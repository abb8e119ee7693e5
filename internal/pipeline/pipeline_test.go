package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	"github.com/scoutfund/troopsales-backend/pkg/enums"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
)

type stubRequirer struct {
	decision      authz.Decision
	err           error
	retryDecision *authz.Decision
	retryErr      error
	retried       bool
	profile       uuid.UUID
	caller        uuid.UUID
	required      enums.Permission
}

func (s *stubRequirer) Require(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (authz.Decision, error) {
	s.profile = profileID
	s.caller = accountID
	s.required = required
	if s.err != nil {
		return authz.Decision{}, s.err
	}
	return s.decision, nil
}

func (s *stubRequirer) RequireWithRetry(ctx context.Context, profileID, accountID uuid.UUID, required enums.Permission) (authz.Decision, error) {
	s.retried = true
	if s.retryErr != nil {
		return authz.Decision{}, s.retryErr
	}
	if s.retryDecision != nil {
		return *s.retryDecision, nil
	}
	return authz.Decision{}, s.err
}

type stubSeasonFinder struct {
	season *models.Season
	err    error
}

func (s *stubSeasonFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Season, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.season == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.season, nil
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	executor := NewExecutor(nil, nil)

	var order []string
	record := func(name string) Step {
		return Check(name, func(_ context.Context, _ *State) error {
			order = append(order, name)
			return nil
		})
	}

	st, err := executor.Execute(context.Background(), uuid.New(),
		record("first"),
		record("second"),
		Mutate("third", func(_ context.Context, st *State) error {
			order = append(order, "third")
			st.Result = "done"
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("steps ran out of order: %v", order)
	}
	if st.Result != "done" {
		t.Fatalf("result not propagated: %v", st.Result)
	}
}

func TestExecuteAbortsOnFirstError(t *testing.T) {
	executor := NewExecutor(nil, nil)

	boom := pkgerrors.New(pkgerrors.CodeValidation, "bad input")
	ran := false
	_, err := executor.Execute(context.Background(), uuid.New(),
		Check("fails", func(_ context.Context, _ *State) error { return boom }),
		Mutate("never", func(_ context.Context, _ *State) error {
			ran = true
			return nil
		}),
	)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected the step error, got %v", err)
	}
	if ran {
		t.Fatal("mutation ran after an aborted read step")
	}
}

func TestExecuteRejectsMisplacedMutation(t *testing.T) {
	executor := NewExecutor(nil, nil)

	ran := false
	_, err := executor.Execute(context.Background(), uuid.New(),
		Mutate("write", func(_ context.Context, _ *State) error {
			ran = true
			return nil
		}),
		Check("after", func(_ context.Context, _ *State) error { return nil }),
	)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected INTERNAL for misplaced mutation, got %v", err)
	}
	if ran {
		t.Fatal("no step may run when the pipeline shape is invalid")
	}
}

func TestExecuteRejectsEmptyPipeline(t *testing.T) {
	executor := NewExecutor(nil, nil)
	if _, err := executor.Execute(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected INTERNAL for empty pipeline, got %v", err)
	}
}

func TestUseProfileSeedsSubject(t *testing.T) {
	profileID := uuid.New()
	st := &State{}
	if err := UseProfile(profileID).Run(context.Background(), st); err != nil {
		t.Fatalf("use profile: %v", err)
	}
	if st.ProfileID != profileID {
		t.Fatalf("profile id = %s, want %s", st.ProfileID, profileID)
	}
}

func TestLookupSeasonResolvesSubject(t *testing.T) {
	season := &models.Season{ID: uuid.New(), ProfileID: uuid.New()}
	st := &State{}
	if err := LookupSeason(&stubSeasonFinder{season: season}, season.ID).Run(context.Background(), st); err != nil {
		t.Fatalf("lookup season: %v", err)
	}
	if st.Season != season {
		t.Fatal("season not stored on state")
	}
	if st.ProfileID != season.ProfileID {
		t.Fatalf("profile id = %s, want %s", st.ProfileID, season.ProfileID)
	}
}

func TestLookupSeasonMissIsForbidden(t *testing.T) {
	st := &State{}
	err := LookupSeason(&stubSeasonFinder{}, uuid.New()).Run(context.Background(), st)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN on missing season, got %v", err)
	}
}

func TestAuthorizeRequiresSubject(t *testing.T) {
	st := &State{}
	err := Authorize(&stubRequirer{}, enums.PermissionWrite).Run(context.Background(), st)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected INTERNAL when authorize runs before lookup, got %v", err)
	}
}

func TestAuthorizeStoresDecision(t *testing.T) {
	requirer := &stubRequirer{decision: authz.Decision{Role: authz.RoleOwner}}
	callerID := uuid.New()
	profileID := uuid.New()

	st := &State{CallerID: callerID, ProfileID: profileID}
	if err := Authorize(requirer, enums.PermissionWrite).Run(context.Background(), st); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if st.Decision == nil || !st.Decision.IsOwner() {
		t.Fatal("decision not recorded on state")
	}
	if requirer.profile != profileID || requirer.caller != callerID || requirer.required != enums.PermissionWrite {
		t.Fatal("resolver called with wrong subject")
	}
}

func TestAuthorizeRetriesDenialAndSeesLateGrant(t *testing.T) {
	granted := authz.Decision{
		Role:        authz.RoleShared,
		Permissions: []enums.Permission{enums.PermissionWrite},
	}
	requirer := &stubRequirer{
		err:           pkgerrors.New(pkgerrors.CodeForbidden, "insufficient profile access"),
		retryDecision: &granted,
	}

	st := &State{CallerID: uuid.New(), ProfileID: uuid.New()}
	if err := Authorize(requirer, enums.PermissionWrite).Run(context.Background(), st); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !requirer.retried {
		t.Fatal("denial must go through the retry path")
	}
	if st.Decision == nil || !st.Decision.Allows(enums.PermissionWrite) {
		t.Fatal("late grant not recorded on state")
	}
}

func TestAuthorizeDenialStandsAfterRetry(t *testing.T) {
	requirer := &stubRequirer{
		err: pkgerrors.New(pkgerrors.CodeForbidden, "insufficient profile access"),
	}

	st := &State{CallerID: uuid.New(), ProfileID: uuid.New()}
	err := Authorize(requirer, enums.PermissionWrite).Run(context.Background(), st)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN after the retry budget, got %v", err)
	}
	if !requirer.retried {
		t.Fatal("denial must go through the retry path")
	}
}

func TestAuthorizeDoesNotRetryNonDenials(t *testing.T) {
	requirer := &stubRequirer{
		err: pkgerrors.New(pkgerrors.CodeDependency, "resolver unavailable"),
	}

	st := &State{CallerID: uuid.New(), ProfileID: uuid.New()}
	err := Authorize(requirer, enums.PermissionWrite).Run(context.Background(), st)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}
	if requirer.retried {
		t.Fatal("infrastructure failures must not burn the retry budget")
	}
}
