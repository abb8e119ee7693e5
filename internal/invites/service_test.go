package invites

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/pkg/config"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
)

type stubInvitesRepo struct {
	created    *models.ProfileInvite
	createErr  error
	invite     *models.ProfileInvite
	findErr    error
	consumeOK  bool
	consumeErr error
	consumed   bool
	deleted    bool
	deleteErr  error
	byProfile  []models.ProfileInvite
}

func (s *stubInvitesRepo) Create(ctx context.Context, invite *models.ProfileInvite) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = invite
	return nil
}

func (s *stubInvitesRepo) FindByCode(ctx context.Context, code string) (*models.ProfileInvite, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.invite == nil || s.invite.Code != code {
		return nil, gorm.ErrRecordNotFound
	}
	return s.invite, nil
}

func (s *stubInvitesRepo) ConsumeTx(tx *gorm.DB, code string, accountID uuid.UUID, now time.Time) (bool, error) {
	if s.consumeErr != nil {
		return false, s.consumeErr
	}
	if s.consumeOK {
		s.consumed = true
	}
	return s.consumeOK, nil
}

func (s *stubInvitesRepo) DeleteByCode(ctx context.Context, code string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = true
	return nil
}

func (s *stubInvitesRepo) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ProfileInvite, error) {
	return s.byProfile, nil
}

type stubSharesStore struct {
	existing *models.ProfileShare
	upserted *models.ProfileShare
	findErr  error
}

func (s *stubSharesStore) Find(ctx context.Context, profileID, targetAccountID uuid.UUID) (*models.ProfileShare, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.existing == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.existing, nil
}

func (s *stubSharesStore) FindTx(tx *gorm.DB, profileID, targetAccountID uuid.UUID) (*models.ProfileShare, error) {
	return s.Find(context.Background(), profileID, targetAccountID)
}

func (s *stubSharesStore) UpsertTx(tx *gorm.DB, share *models.ProfileShare) error {
	s.upserted = share
	return nil
}

type stubResolver struct {
	fresh       authz.Decision
	err         error
	invalidated int
}

func (s *stubResolver) ResolveFresh(ctx context.Context, profileID, accountID uuid.UUID) (authz.Decision, error) {
	if s.err != nil {
		return authz.Decision{}, s.err
	}
	return s.fresh, nil
}

func (s *stubResolver) InvalidateDecision(ctx context.Context, profileID, accountID uuid.UUID) {
	s.invalidated++
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

var testClock = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testInvitesConfig() config.InvitesConfig {
	return config.InvitesConfig{
		MaxTTL:     168 * time.Hour,
		DefaultTTL: 72 * time.Hour,
	}
}

func newTestService(t *testing.T, repo *stubInvitesRepo, shares *stubSharesStore, resolver *stubResolver) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Shares:   shares,
		Resolver: resolver,
		Tx:       passthroughTx{},
		Config:   testInvitesConfig(),
		Now:      func() time.Time { return testClock },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func ownerResolver() *stubResolver {
	return &stubResolver{fresh: authz.Decision{Role: authz.RoleOwner}}
}

func strangerResolver() *stubResolver {
	return &stubResolver{fresh: authz.Decision{Role: authz.RoleNone}}
}

func pendingInvite(profileID uuid.UUID) *models.ProfileInvite {
	return &models.ProfileInvite{
		Code:               "invite-code",
		ProfileID:          profileID,
		Permissions:        []string{"READ"},
		ExpiresAt:          testClock.Add(24 * time.Hour),
		CreatedByAccountID: uuid.New(),
	}
}

func TestCreateAppliesDefaultTTL(t *testing.T) {
	repo := &stubInvitesRepo{}
	svc := newTestService(t, repo, &stubSharesStore{}, ownerResolver())

	dto, err := svc.Create(context.Background(), uuid.New(), uuid.New(), CreateInviteInput{
		Permissions: []string{"READ"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := testClock.Add(72 * time.Hour)
	if !repo.created.ExpiresAt.Equal(want) {
		t.Fatalf("expires at = %s, want %s", repo.created.ExpiresAt, want)
	}
	if dto.State != "pending" {
		t.Fatalf("state = %q", dto.State)
	}
	if dto.Code == "" {
		t.Fatal("code not generated")
	}
}

func TestCreateClampsTTLToMax(t *testing.T) {
	repo := &stubInvitesRepo{}
	svc := newTestService(t, repo, &stubSharesStore{}, ownerResolver())

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), CreateInviteInput{
		Permissions: []string{"READ"},
		TTL:         1000 * time.Hour,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := testClock.Add(168 * time.Hour)
	if !repo.created.ExpiresAt.Equal(want) {
		t.Fatalf("expires at = %s, want clamped %s", repo.created.ExpiresAt, want)
	}
}

func TestCreateRejectsEmptyPermissions(t *testing.T) {
	svc := newTestService(t, &stubInvitesRepo{}, &stubSharesStore{}, ownerResolver())

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), CreateInviteInput{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestCreateByNonOwnerIsForbidden(t *testing.T) {
	resolver := &stubResolver{fresh: authz.Decision{Role: authz.RoleShared}}
	svc := newTestService(t, &stubInvitesRepo{}, &stubSharesStore{}, resolver)

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), CreateInviteInput{
		Permissions: []string{"READ"},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestRedeemCreatesShare(t *testing.T) {
	profileID := uuid.New()
	callerID := uuid.New()
	repo := &stubInvitesRepo{invite: pendingInvite(profileID), consumeOK: true}
	shares := &stubSharesStore{}
	resolver := strangerResolver()
	svc := newTestService(t, repo, shares, resolver)

	redemption, err := svc.Redeem(context.Background(), callerID, "invite-code")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption.ProfileID != profileID {
		t.Fatalf("profile = %s, want %s", redemption.ProfileID, profileID)
	}
	if shares.upserted == nil {
		t.Fatal("share not written")
	}
	if shares.upserted.TargetAccountID != callerID {
		t.Fatalf("share target = %s, want %s", shares.upserted.TargetAccountID, callerID)
	}
	if resolver.invalidated != 1 {
		t.Fatal("decision not invalidated after grant")
	}
}

func TestRedeemMergesExistingShare(t *testing.T) {
	profileID := uuid.New()
	callerID := uuid.New()
	invite := pendingInvite(profileID)
	invite.Permissions = []string{"WRITE"}

	repo := &stubInvitesRepo{invite: invite, consumeOK: true}
	shares := &stubSharesStore{existing: &models.ProfileShare{
		ProfileID:       profileID,
		TargetAccountID: callerID,
		Permissions:     []string{"READ"},
	}}
	svc := newTestService(t, repo, shares, strangerResolver())

	redemption, err := svc.Redeem(context.Background(), callerID, "invite-code")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if len(redemption.Permissions) != 2 {
		t.Fatalf("merged permissions = %v, want READ and WRITE", redemption.Permissions)
	}
	if len(shares.upserted.Permissions) != 2 {
		t.Fatalf("stored permissions = %v, redemption must never narrow a grant", shares.upserted.Permissions)
	}
}

func TestRedeemExpiredInvite(t *testing.T) {
	profileID := uuid.New()
	invite := pendingInvite(profileID)
	invite.ExpiresAt = testClock.Add(-time.Minute)

	svc := newTestService(t, &stubInvitesRepo{invite: invite}, &stubSharesStore{}, strangerResolver())

	_, err := svc.Redeem(context.Background(), uuid.New(), "invite-code")
	if !pkgerrors.IsCode(err, pkgerrors.CodeExpired) {
		t.Fatalf("expected INVITE_EXPIRED, got %v", err)
	}
}

func TestRedeemLostRaceIsAlreadyUsed(t *testing.T) {
	profileID := uuid.New()
	repo := &stubInvitesRepo{invite: pendingInvite(profileID), consumeOK: false}
	svc := newTestService(t, repo, &stubSharesStore{}, strangerResolver())

	_, err := svc.Redeem(context.Background(), uuid.New(), "invite-code")
	if !pkgerrors.IsCode(err, pkgerrors.CodeAlreadyUsed) {
		t.Fatalf("expected INVITE_ALREADY_USED, got %v", err)
	}
}

func TestRedeemConsumedByOther(t *testing.T) {
	profileID := uuid.New()
	other := uuid.New()
	invite := pendingInvite(profileID)
	invite.Consumed = true
	invite.ConsumedByID = &other

	svc := newTestService(t, &stubInvitesRepo{invite: invite}, &stubSharesStore{}, strangerResolver())

	_, err := svc.Redeem(context.Background(), uuid.New(), "invite-code")
	if !pkgerrors.IsCode(err, pkgerrors.CodeAlreadyUsed) {
		t.Fatalf("expected INVITE_ALREADY_USED, got %v", err)
	}
}

func TestRedeemRepeatByRedeemerFailsClosed(t *testing.T) {
	profileID := uuid.New()
	callerID := uuid.New()
	invite := pendingInvite(profileID)
	invite.Consumed = true
	invite.ConsumedByID = &callerID
	// Consumed-then-expired stays redeemed.
	invite.ExpiresAt = testClock.Add(-time.Hour)

	shares := &stubSharesStore{existing: &models.ProfileShare{
		ProfileID:       profileID,
		TargetAccountID: callerID,
		Permissions:     []string{"READ"},
	}}
	svc := newTestService(t, &stubInvitesRepo{invite: invite}, shares, strangerResolver())

	// Single-use means single-use: the redeemer keeps the share the first
	// redemption produced, but the code itself never works twice.
	_, err := svc.Redeem(context.Background(), callerID, "invite-code")
	if !pkgerrors.IsCode(err, pkgerrors.CodeAlreadyUsed) {
		t.Fatalf("expected INVITE_ALREADY_USED, got %v", err)
	}
}

func TestRedeemConsumedWithoutShareIsFatal(t *testing.T) {
	profileID := uuid.New()
	callerID := uuid.New()
	invite := pendingInvite(profileID)
	invite.Consumed = true
	invite.ConsumedByID = &callerID

	svc := newTestService(t, &stubInvitesRepo{invite: invite}, &stubSharesStore{}, strangerResolver())

	_, err := svc.Redeem(context.Background(), callerID, "invite-code")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("consumed invite without its share is corrupted state, got %v", err)
	}
}

func TestRedeemByOwnerRejected(t *testing.T) {
	profileID := uuid.New()
	svc := newTestService(t, &stubInvitesRepo{invite: pendingInvite(profileID)}, &stubSharesStore{}, ownerResolver())

	_, err := svc.Redeem(context.Background(), uuid.New(), "invite-code")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	svc := newTestService(t, &stubInvitesRepo{}, &stubSharesStore{}, strangerResolver())

	_, err := svc.Redeem(context.Background(), uuid.New(), "missing")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestRevokeAbsentInviteSucceeds(t *testing.T) {
	svc := newTestService(t, &stubInvitesRepo{}, &stubSharesStore{}, ownerResolver())

	if err := svc.Revoke(context.Background(), uuid.New(), "missing"); err != nil {
		t.Fatalf("revoking an absent invite must succeed, got %v", err)
	}
}

func TestRevokeConsumedInvite(t *testing.T) {
	profileID := uuid.New()
	invite := pendingInvite(profileID)
	invite.Consumed = true

	svc := newTestService(t, &stubInvitesRepo{invite: invite}, &stubSharesStore{}, ownerResolver())

	err := svc.Revoke(context.Background(), uuid.New(), "invite-code")
	if !pkgerrors.IsCode(err, pkgerrors.CodeAlreadyUsed) {
		t.Fatalf("expected INVITE_ALREADY_USED, got %v", err)
	}
}

func TestRevokePendingInvite(t *testing.T) {
	profileID := uuid.New()
	repo := &stubInvitesRepo{invite: pendingInvite(profileID)}
	svc := newTestService(t, repo, &stubSharesStore{}, ownerResolver())

	if err := svc.Revoke(context.Background(), uuid.New(), "invite-code"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !repo.deleted {
		t.Fatal("invite not deleted")
	}
}

func TestRevokeByNonOwnerIsForbidden(t *testing.T) {
	profileID := uuid.New()
	resolver := &stubResolver{fresh: authz.Decision{Role: authz.RoleShared}}
	svc := newTestService(t, &stubInvitesRepo{invite: pendingInvite(profileID)}, &stubSharesStore{}, resolver)

	err := svc.Revoke(context.Background(), uuid.New(), "invite-code")
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestListByProfileOwnerOnly(t *testing.T) {
	svc := newTestService(t, &stubInvitesRepo{}, &stubSharesStore{}, strangerResolver())

	_, err := svc.ListByProfile(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND mask, got %v", err)
	}
}

func TestListByProfileComputesState(t *testing.T) {
	profileID := uuid.New()
	repo := &stubInvitesRepo{byProfile: []models.ProfileInvite{
		{Code: "a", ProfileID: profileID, Permissions: []string{"READ"}, ExpiresAt: testClock.Add(time.Hour)},
		{Code: "b", ProfileID: profileID, Permissions: []string{"READ"}, ExpiresAt: testClock.Add(-time.Hour)},
	}}
	svc := newTestService(t, repo, &stubSharesStore{}, ownerResolver())

	dtos, err := svc.ListByProfile(context.Background(), uuid.New(), profileID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if dtos[0].State != "pending" || dtos[1].State != "expired" {
		t.Fatalf("states = %q, %q", dtos[0].State, dtos[1].State)
	}
}
