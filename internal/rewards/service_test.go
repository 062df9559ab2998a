package rewards

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
)

func setupRewardsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	rewards := `
CREATE TABLE IF NOT EXISTS rewards (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  point_cost INTEGER NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	redemptions := `
CREATE TABLE IF NOT EXISTS reward_redemptions (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  reward_id TEXT NOT NULL,
  ledger_entry_id TEXT NOT NULL,
  points_used INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(rewards).Error)
	require.NoError(t, db.Exec(redemptions).Error)
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupRewardsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func TestCreateAndListRewards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mug, err := svc.Create(ctx, CreateInput{Name: "eco mug", PointCost: 80, Category: "goods"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: "half day off", PointCost: 500, Category: "time"})
	require.NoError(t, err)

	active := false
	_, err = svc.Update(ctx, UpdateInput{ID: mug.ID, Active: &active})
	require.NoError(t, err)

	visible, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "half day off", visible[0].Name)

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "  ", PointCost: 10})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.Create(ctx, CreateInput{Name: "free", PointCost: 0})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestValidateRedemption(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	reward, err := svc.Create(ctx, CreateInput{Name: "eco mug", PointCost: 80})
	require.NoError(t, err)

	got, err := svc.ValidateRedemption(ctx, db, reward.ID, 80)
	require.NoError(t, err)
	assert.Equal(t, reward.ID, got.ID)

	_, err = svc.ValidateRedemption(ctx, db, reward.ID, 100)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.ValidateRedemption(ctx, db, uuid.New(), 80)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	inactive := false
	_, err = svc.Update(ctx, UpdateInput{ID: reward.ID, Active: &inactive})
	require.NoError(t, err)

	_, err = svc.ValidateRedemption(ctx, db, reward.ID, 80)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestRecordAndListRedemptions(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	reward, err := svc.Create(ctx, CreateInput{Name: "eco mug", PointCost: 80})
	require.NoError(t, err)

	accountID := uuid.New()
	redemption := &models.RewardRedemption{
		AccountID:     accountID,
		RewardID:      reward.ID,
		LedgerEntryID: uuid.New(),
		PointsUsed:    80,
	}
	require.NoError(t, svc.RecordRedemption(ctx, db, redemption))

	list, err := svc.ListRedemptions(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, reward.ID, list[0].RewardID)
}
