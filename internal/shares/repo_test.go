package shares

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/scoutfund/troopsales-backend/pkg/db/models"
)

func setupSharesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS profile_shares (
  profile_id TEXT NOT NULL,
  target_account_id TEXT NOT NULL,
  permissions TEXT NOT NULL,
  created_by_account_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  PRIMARY KEY (profile_id, target_account_id)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newShare(profileID, targetID uuid.UUID, perms ...string) *models.ProfileShare {
	return &models.ProfileShare{
		ProfileID:          profileID,
		TargetAccountID:    targetID,
		Permissions:        pq.StringArray(perms),
		CreatedByAccountID: uuid.New(),
	}
}

func TestUpsertReplacesPermissions(t *testing.T) {
	db := setupSharesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	profileID := uuid.New()
	targetID := uuid.New()
	require.NoError(t, repo.Upsert(ctx, newShare(profileID, targetID, "READ")))
	require.NoError(t, repo.Upsert(ctx, newShare(profileID, targetID, "READ", "WRITE")))

	share, err := repo.Find(ctx, profileID, targetID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"READ", "WRITE"}, []string(share.Permissions))

	count, err := repo.CountByProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "upsert must not create a second row for the pair")
}

func TestFindMissingShare(t *testing.T) {
	db := setupSharesTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Find(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteShareIsIdempotent(t *testing.T) {
	db := setupSharesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	profileID := uuid.New()
	targetID := uuid.New()
	require.NoError(t, repo.Upsert(ctx, newShare(profileID, targetID, "READ")))

	require.NoError(t, repo.Delete(ctx, profileID, targetID))
	require.NoError(t, repo.Delete(ctx, profileID, targetID))

	_, err := repo.Find(ctx, profileID, targetID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListShareDirections(t *testing.T) {
	db := setupSharesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	profileID := uuid.New()
	targetA := uuid.New()
	targetB := uuid.New()
	otherProfile := uuid.New()
	require.NoError(t, repo.Upsert(ctx, newShare(profileID, targetA, "READ")))
	require.NoError(t, repo.Upsert(ctx, newShare(profileID, targetB, "READ", "WRITE")))
	require.NoError(t, repo.Upsert(ctx, newShare(otherProfile, targetA, "READ")))

	byProfile, err := repo.ListByProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Len(t, byProfile, 2)

	byTarget, err := repo.ListByTarget(ctx, targetA)
	require.NoError(t, err)
	assert.Len(t, byTarget, 2)

	targets, err := repo.ListTargetsByProfile(ctx, profileID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{targetA, targetB}, targets)

	profileIDs, err := repo.ListProfileIDsByTarget(ctx, targetA)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{profileID, otherProfile}, profileIDs)
}

func TestDeleteSharesByProfileTx(t *testing.T) {
	db := setupSharesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	profileID := uuid.New()
	require.NoError(t, repo.Upsert(ctx, newShare(profileID, uuid.New(), "READ")))
	require.NoError(t, repo.Upsert(ctx, newShare(profileID, uuid.New(), "WRITE")))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.DeleteByProfileTx(tx, profileID)
	}))

	count, err := repo.CountByProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRecreatedProfileInheritsNothing(t *testing.T) {
	db := setupSharesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	originalID := uuid.New()
	target := uuid.New()
	require.NoError(t, repo.Upsert(ctx, newShare(originalID, target, "READ", "WRITE")))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.DeleteByProfileTx(tx, originalID)
	}))

	// A profile created after the cascade has a fresh identity; nothing
	// granted against the old one carries over.
	recreatedID := uuid.New()
	shares, err := repo.ListByProfile(ctx, recreatedID)
	require.NoError(t, err)
	assert.Empty(t, shares)

	profileIDs, err := repo.ListProfileIDsByTarget(ctx, target)
	require.NoError(t, err)
	assert.Empty(t, profileIDs)
}
