package shares

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

type stubSharesRepo struct {
	upserted   *models.ProfileShare
	upsertErr  error
	deleted    bool
	deleteErr  error
	byProfile  []models.ProfileShare
	byTarget   []models.ProfileShare
	listErr    error
	findResult *models.ProfileShare
}

func (s *stubSharesRepo) Find(ctx context.Context, profileID, targetAccountID uuid.UUID) (*models.ProfileShare, error) {
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubSharesRepo) Upsert(ctx context.Context, share *models.ProfileShare) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = share
	return nil
}

func (s *stubSharesRepo) Delete(ctx context.Context, profileID, targetAccountID uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = true
	return nil
}

func (s *stubSharesRepo) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ProfileShare, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.byProfile, nil
}

func (s *stubSharesRepo) ListByTarget(ctx context.Context, targetAccountID uuid.UUID) ([]models.ProfileShare, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.byTarget, nil
}

type stubAccounts struct {
	account *models.Account
	err     error
}

func (s *stubAccounts) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.account == nil || s.account.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.account, nil
}

type stubResolver struct {
	decision    authz.Decision
	fresh       authz.Decision
	err         error
	invalidated []uuid.UUID
}

func (s *stubResolver) Resolve(ctx context.Context, profileID, accountID uuid.UUID) (authz.Decision, error) {
	if s.err != nil {
		return authz.Decision{}, s.err
	}
	return s.decision, nil
}

func (s *stubResolver) ResolveFresh(ctx context.Context, profileID, accountID uuid.UUID) (authz.Decision, error) {
	if s.err != nil {
		return authz.Decision{}, s.err
	}
	return s.fresh, nil
}

func (s *stubResolver) InvalidateDecision(ctx context.Context, profileID, accountID uuid.UUID) {
	s.invalidated = append(s.invalidated, accountID)
}

func newTestService(t *testing.T, repo *stubSharesRepo, accounts *stubAccounts, resolver *stubResolver) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Accounts: accounts, Resolver: resolver})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func ownerResolver() *stubResolver {
	return &stubResolver{
		decision: authz.Decision{Role: authz.RoleOwner},
		fresh:    authz.Decision{Role: authz.RoleOwner},
	}
}

func TestShareCreatesRow(t *testing.T) {
	callerID := uuid.New()
	profileID := uuid.New()
	target := &models.Account{ID: uuid.New(), Email: "scout@example.com"}

	repo := &stubSharesRepo{}
	resolver := ownerResolver()
	svc := newTestService(t, repo, &stubAccounts{account: target}, resolver)

	dto, err := svc.Share(context.Background(), callerID, profileID, ShareInput{
		TargetEmail: "scout@example.com",
		Permissions: []string{"READ", "WRITE"},
	})
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if repo.upserted == nil {
		t.Fatal("share row not written")
	}
	if repo.upserted.TargetAccountID != target.ID {
		t.Fatalf("target = %s, want %s", repo.upserted.TargetAccountID, target.ID)
	}
	if repo.upserted.CreatedByAccountID != callerID {
		t.Fatalf("created by = %s, want %s", repo.upserted.CreatedByAccountID, callerID)
	}
	if len(dto.Permissions) != 2 {
		t.Fatalf("dto permissions = %v", dto.Permissions)
	}
	if len(resolver.invalidated) != 1 || resolver.invalidated[0] != target.ID {
		t.Fatal("target decision not invalidated")
	}
}

func TestShareRejectsEmptyPermissions(t *testing.T) {
	svc := newTestService(t, &stubSharesRepo{}, &stubAccounts{}, ownerResolver())

	_, err := svc.Share(context.Background(), uuid.New(), uuid.New(), ShareInput{
		TargetEmail: "scout@example.com",
		Permissions: []string{},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestShareRejectsUnknownPermission(t *testing.T) {
	svc := newTestService(t, &stubSharesRepo{}, &stubAccounts{}, ownerResolver())

	_, err := svc.Share(context.Background(), uuid.New(), uuid.New(), ShareInput{
		TargetEmail: "scout@example.com",
		Permissions: []string{"ADMIN"},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestShareRejectsSelf(t *testing.T) {
	callerID := uuid.New()
	svc := newTestService(t, &stubSharesRepo{},
		&stubAccounts{account: &models.Account{ID: callerID, Email: "owner@example.com"}},
		ownerResolver())

	_, err := svc.Share(context.Background(), callerID, uuid.New(), ShareInput{
		TargetEmail: "owner@example.com",
		Permissions: []string{"READ"},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestShareUnknownEmailIsNotFound(t *testing.T) {
	svc := newTestService(t, &stubSharesRepo{}, &stubAccounts{}, ownerResolver())

	_, err := svc.Share(context.Background(), uuid.New(), uuid.New(), ShareInput{
		TargetEmail: "nobody@example.com",
		Permissions: []string{"READ"},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestShareByNonOwnerIsForbidden(t *testing.T) {
	resolver := &stubResolver{
		fresh: authz.Decision{Role: authz.RoleShared},
	}
	svc := newTestService(t, &stubSharesRepo{}, &stubAccounts{}, resolver)

	_, err := svc.Share(context.Background(), uuid.New(), uuid.New(), ShareInput{
		TargetEmail: "scout@example.com",
		Permissions: []string{"READ"},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestShareByStrangerIsNotFound(t *testing.T) {
	resolver := &stubResolver{
		fresh: authz.Decision{Role: authz.RoleNone},
	}
	svc := newTestService(t, &stubSharesRepo{}, &stubAccounts{}, resolver)

	_, err := svc.Share(context.Background(), uuid.New(), uuid.New(), ShareInput{
		TargetEmail: "scout@example.com",
		Permissions: []string{"READ"},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND mask, got %v", err)
	}
}

func TestRevokeAbsentShareSucceeds(t *testing.T) {
	repo := &stubSharesRepo{}
	resolver := ownerResolver()
	svc := newTestService(t, repo, &stubAccounts{}, resolver)

	targetID := uuid.New()
	if err := svc.Revoke(context.Background(), uuid.New(), uuid.New(), targetID); err != nil {
		t.Fatalf("revoke must be idempotent, got %v", err)
	}
	if !repo.deleted {
		t.Fatal("delete not issued")
	}
	if len(resolver.invalidated) != 1 || resolver.invalidated[0] != targetID {
		t.Fatal("target decision not invalidated")
	}
}

func TestListByProfileMasksDenial(t *testing.T) {
	resolver := &stubResolver{decision: authz.Decision{Role: authz.RoleNone}}
	svc := newTestService(t, &stubSharesRepo{}, &stubAccounts{}, resolver)

	_, err := svc.ListByProfile(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND mask, got %v", err)
	}
}

func TestListByProfileAllowsSharedReader(t *testing.T) {
	profileID := uuid.New()
	resolver := &stubResolver{decision: authz.Decision{
		Role:        authz.RoleShared,
		Permissions: mustPermissionSet(t, "READ"),
	}}
	repo := &stubSharesRepo{byProfile: []models.ProfileShare{
		{ProfileID: profileID, TargetAccountID: uuid.New(), Permissions: []string{"READ"}},
	}}
	svc := newTestService(t, repo, &stubAccounts{}, resolver)

	dtos, err := svc.ListByProfile(context.Background(), uuid.New(), profileID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dtos) != 1 {
		t.Fatalf("expected one share, got %d", len(dtos))
	}
}

func TestListSharedWithMe(t *testing.T) {
	callerID := uuid.New()
	repo := &stubSharesRepo{byTarget: []models.ProfileShare{
		{ProfileID: uuid.New(), TargetAccountID: callerID, Permissions: []string{"READ"}},
		{ProfileID: uuid.New(), TargetAccountID: callerID, Permissions: []string{"READ", "WRITE"}},
	}}
	svc := newTestService(t, repo, &stubAccounts{}, ownerResolver())

	dtos, err := svc.ListSharedWithMe(context.Background(), callerID)
	if err != nil {
		t.Fatalf("list shared with me: %v", err)
	}
	if len(dtos) != 2 {
		t.Fatalf("expected two shares, got %d", len(dtos))
	}
}

func mustPermissionSet(t *testing.T, perms ...string) enums.PermissionSet {
	t.Helper()
	set, err := enums.ParsePermissionSet(perms)
	if err != nil {
		t.Fatalf("parse permission set: %v", err)
	}
	return set
}
