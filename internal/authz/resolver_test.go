package authz

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/pkg/config"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	"github.com/scoutfund/troopsales-backend/pkg/enums"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
)

type stubProfilesRepo struct {
	profile *models.SellerProfile
	err     error
	calls   int
}

func (s *stubProfilesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.profile == nil || s.profile.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.profile, nil
}

type stubSharesRepo struct {
	share *models.ProfileShare
	err   error
	calls int

	// missFirst makes the first N lookups miss, modelling a share write
	// that has not propagated yet.
	missFirst int
}

func (s *stubSharesRepo) Find(ctx context.Context, profileID, targetAccountID uuid.UUID) (*models.ProfileShare, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.calls <= s.missFirst {
		return nil, gorm.ErrRecordNotFound
	}
	if s.share == nil || s.share.ProfileID != profileID || s.share.TargetAccountID != targetAccountID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.share, nil
}

type memoryCache struct {
	entries     map[string]Decision
	invalidated int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]Decision)}
}

func cacheKey(profileID, accountID uuid.UUID) string {
	return profileID.String() + ":" + accountID.String()
}

func (m *memoryCache) Get(ctx context.Context, profileID, accountID uuid.UUID) (*Decision, bool) {
	decision, ok := m.entries[cacheKey(profileID, accountID)]
	if !ok {
		return nil, false
	}
	return &decision, true
}

func (m *memoryCache) Put(ctx context.Context, profileID, accountID uuid.UUID, decision Decision) {
	m.entries[cacheKey(profileID, accountID)] = decision
}

func (m *memoryCache) Invalidate(ctx context.Context, profileID, accountID uuid.UUID) {
	m.invalidated++
	delete(m.entries, cacheKey(profileID, accountID))
}

func testAuthzConfig() config.AuthzConfig {
	return config.AuthzConfig{
		CacheTTL:        5 * time.Second,
		RetryBase:       time.Millisecond,
		RetryMaxElapsed: 20 * time.Millisecond,
	}
}

func newTestResolver(t *testing.T, profiles *stubProfilesRepo, shares *stubSharesRepo, cache DecisionCache) *Resolver {
	t.Helper()
	resolver, err := NewResolver(profiles, shares, cache, testAuthzConfig())
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

func TestResolveOwner(t *testing.T) {
	ownerID := uuid.New()
	profile := &models.SellerProfile{ID: uuid.New(), OwnerAccountID: ownerID}
	resolver := newTestResolver(t, &stubProfilesRepo{profile: profile}, &stubSharesRepo{}, nil)

	decision, err := resolver.Resolve(context.Background(), profile.ID, ownerID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !decision.IsOwner() {
		t.Fatalf("expected owner role, got %s", decision.Role)
	}
	if !decision.Allows(enums.PermissionWrite) {
		t.Error("owner must hold write")
	}
}

func TestResolveSharedSubset(t *testing.T) {
	profile := &models.SellerProfile{ID: uuid.New(), OwnerAccountID: uuid.New()}
	target := uuid.New()
	shares := &stubSharesRepo{share: &models.ProfileShare{
		ProfileID:       profile.ID,
		TargetAccountID: target,
		Permissions:     []string{"READ"},
	}}
	resolver := newTestResolver(t, &stubProfilesRepo{profile: profile}, shares, nil)

	decision, err := resolver.Resolve(context.Background(), profile.ID, target)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if decision.Role != RoleShared {
		t.Fatalf("expected shared role, got %s", decision.Role)
	}
	if !decision.Allows(enums.PermissionRead) || decision.Allows(enums.PermissionWrite) {
		t.Fatalf("expected read-only grant, got %v", decision.Permissions)
	}
}

func TestResolveMissingProfileIsNone(t *testing.T) {
	resolver := newTestResolver(t, &stubProfilesRepo{}, &stubSharesRepo{}, nil)

	decision, err := resolver.Resolve(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("a missing profile must not surface an error, got %v", err)
	}
	if !decision.Denied() {
		t.Fatalf("expected none role, got %s", decision.Role)
	}
}

func TestResolveNoShareIsNone(t *testing.T) {
	profile := &models.SellerProfile{ID: uuid.New(), OwnerAccountID: uuid.New()}
	resolver := newTestResolver(t, &stubProfilesRepo{profile: profile}, &stubSharesRepo{}, nil)

	decision, err := resolver.Resolve(context.Background(), profile.ID, uuid.New())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !decision.Denied() {
		t.Fatalf("expected none role, got %s", decision.Role)
	}
}

func TestResolveEmptyShareIsNone(t *testing.T) {
	profile := &models.SellerProfile{ID: uuid.New(), OwnerAccountID: uuid.New()}
	target := uuid.New()
	shares := &stubSharesRepo{share: &models.ProfileShare{
		ProfileID:       profile.ID,
		TargetAccountID: target,
		Permissions:     []string{},
	}}
	resolver := newTestResolver(t, &stubProfilesRepo{profile: profile}, shares, nil)

	decision, err := resolver.Resolve(context.Background(), profile.ID, target)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !decision.Denied() {
		t.Fatalf("a share granting nothing must resolve to none, got %s", decision.Role)
	}
}

func TestResolveUsesCache(t *testing.T) {
	ownerID := uuid.New()
	profile := &models.SellerProfile{ID: uuid.New(), OwnerAccountID: ownerID}
	profiles := &stubProfilesRepo{profile: profile}
	cache := newMemoryCache()
	resolver := newTestResolver(t, profiles, &stubSharesRepo{}, cache)

	if _, err := resolver.Resolve(context.Background(), profile.ID, ownerID); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), profile.ID, ownerID); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if profiles.calls != 1 {
		t.Fatalf("expected one repo read, got %d", profiles.calls)
	}
}

func TestResolveFreshBypassesCache(t *testing.T) {
	ownerID := uuid.New()
	profile := &models.SellerProfile{ID: uuid.New(), OwnerAccountID: ownerID}
	profiles := &stubProfilesRepo{profile: profile}
	cache := newMemoryCache()
	cache.Put(context.Background(), profile.ID, ownerID, Decision{Role: RoleNone})
	resolver := newTestResolver(t, profiles, &stubSharesRepo{}, cache)

	decision, err := resolver.ResolveFresh(context.Background(), profile.ID, ownerID)
	if err != nil {
		t.Fatalf("resolve fresh: %v", err)
	}
	if !decision.IsOwner() {
		t.Fatalf("fresh resolution must ignore the cached denial, got %s", decision.Role)
	}
	if profiles.calls != 1 {
		t.Fatalf("expected a repo read, got %d", profiles.calls)
	}
}

func TestInvalidateDecisionDropsCachedEntry(t *testing.T) {
	ownerID := uuid.New()
	profile := &models.SellerProfile{ID: uuid.New(), OwnerAccountID: ownerID}
	profiles := &stubProfilesRepo{profile: profile}
	cache := newMemoryCache()
	resolver := newTestResolver(t, profiles, &stubSharesRepo{}, cache)

	if _, err := resolver.Resolve(context.Background(), profile.ID, ownerID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resolver.InvalidateDecision(context.Background(), profile.ID, ownerID)
	if _, err := resolver.Resolve(context.Background(), profile.ID, ownerID); err != nil {
		t.Fatalf("resolve after invalidate: %v", err)
	}
	if profiles.calls != 2 {
		t.Fatalf("expected two repo reads after invalidation, got %d", profiles.calls)
	}
}

func TestRequireDenialIsForbidden(t *testing.T) {
	profile := &models.SellerProfile{ID: uuid.New(), OwnerAccountID: uuid.New()}
	resolver := newTestResolver(t, &stubProfilesRepo{profile: profile}, &stubSharesRepo{}, nil)

	_, err := resolver.Require(context.Background(), profile.ID, uuid.New(), enums.PermissionRead)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestRequireWithRetrySeesLateGrant(t *testing.T) {
	profile := &models.SellerProfile{ID: uuid.New(), OwnerAccountID: uuid.New()}
	target := uuid.New()
	shares := &stubSharesRepo{
		missFirst: 2,
		share: &models.ProfileShare{
			ProfileID:       profile.ID,
			TargetAccountID: target,
			Permissions:     []string{"READ"},
		},
	}
	resolver := newTestResolver(t, &stubProfilesRepo{profile: profile}, shares, nil)

	decision, err := resolver.RequireWithRetry(context.Background(), profile.ID, target, enums.PermissionRead)
	if err != nil {
		t.Fatalf("expected retry to observe the grant, got %v", err)
	}
	if decision.Role != RoleShared {
		t.Fatalf("expected shared role, got %s", decision.Role)
	}
}

func TestRequireWithRetryExhaustsBudget(t *testing.T) {
	profile := &models.SellerProfile{ID: uuid.New(), OwnerAccountID: uuid.New()}
	resolver := newTestResolver(t, &stubProfilesRepo{profile: profile}, &stubSharesRepo{}, nil)

	_, err := resolver.RequireWithRetry(context.Background(), profile.ID, uuid.New(), enums.PermissionWrite)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected the denial to stand, got %v", err)
	}
}
