package rankings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	usagepkg "github.com/ecochamp/ecochamp-backend/internal/usage"
	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
)

func setupRankingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  department TEXT NOT NULL,
  employee_id TEXT,
  company_code TEXT,
  role TEXT NOT NULL DEFAULT 'employee',
  points INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS usage_records (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  energy_type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  cost NUMERIC NOT NULL,
  unit TEXT NOT NULL DEFAULT '',
  usage_date DATETIME NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS individual_rankings (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  account_name TEXT NOT NULL DEFAULT '',
  department TEXT NOT NULL DEFAULT '',
  year INTEGER NOT NULL,
  month INTEGER NOT NULL,
  reduction_rate NUMERIC NOT NULL,
  total_points INTEGER NOT NULL,
  rank INTEGER NOT NULL,
  created_at DATETIME,
  UNIQUE (account_id, year, month)
);`, `
CREATE TABLE IF NOT EXISTS department_rankings (
  id TEXT PRIMARY KEY,
  department TEXT NOT NULL,
  year INTEGER NOT NULL,
  month INTEGER NOT NULL,
  avg_reduction_rate NUMERIC NOT NULL,
  total_points INTEGER NOT NULL,
  member_count INTEGER NOT NULL,
  rank INTEGER NOT NULL,
  created_at DATETIME,
  UNIQUE (department, year, month)
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func newRankingsService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupRankingsTestDB(t)
	svc, err := NewService(NewRepository(db), usagepkg.NewRepository(db), gormTxRunner{db: db})
	require.NoError(t, err)
	return svc, db
}

func seedRankedAccount(t *testing.T, db *gorm.DB, name, department string, points int) *models.Account {
	t.Helper()

	account := &models.Account{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Name:         name,
		Department:   department,
		Role:         enums.AccountRoleEmployee,
		Points:       points,
		IsActive:     true,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func seedUsage(t *testing.T, db *gorm.DB, accountID uuid.UUID, amount float64, date time.Time) {
	t.Helper()

	record := &models.UsageRecord{
		ID:         uuid.New(),
		AccountID:  accountID,
		EnergyType: enums.EnergyTypeElectricity,
		Amount:     decimal.NewFromFloat(amount),
		Cost:       decimal.NewFromInt(10),
		Unit:       "kWh",
		UsageDate:  date,
	}
	require.NoError(t, db.Create(record).Error)
}

var (
	prevMonth = time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	currMonth = time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
)

func TestRecomputeOrdersByReductionThenPoints(t *testing.T) {
	svc, db := newRankingsService(t)
	ctx := context.Background()

	// 20% reduction, fewer points
	alice := seedRankedAccount(t, db, "Alice", "Engineering", 100)
	seedUsage(t, db, alice.ID, 100, prevMonth)
	seedUsage(t, db, alice.ID, 80, currMonth)

	// 20% reduction, more points: wins the tie
	bob := seedRankedAccount(t, db, "Bob", "Engineering", 500)
	seedUsage(t, db, bob.ID, 200, prevMonth)
	seedUsage(t, db, bob.ID, 160, currMonth)

	// 10% reduction
	carol := seedRankedAccount(t, db, "Carol", "Sales", 900)
	seedUsage(t, db, carol.ID, 100, prevMonth)
	seedUsage(t, db, carol.ID, 90, currMonth)

	result, err := svc.Recompute(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Individuals)

	entries, err := svc.Individual(ctx, 2025, 3, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Bob", entries[0].Name)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Alice", entries[1].Name)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "Carol", entries[2].Name)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestRecomputeExcludesNonReducers(t *testing.T) {
	svc, db := newRankingsService(t)
	ctx := context.Background()

	// usage went up
	up := seedRankedAccount(t, db, "Up", "Engineering", 100)
	seedUsage(t, db, up.ID, 100, prevMonth)
	seedUsage(t, db, up.ID, 120, currMonth)

	// no previous month data
	fresh := seedRankedAccount(t, db, "Fresh", "Engineering", 100)
	seedUsage(t, db, fresh.ID, 50, currMonth)

	// flat usage
	flat := seedRankedAccount(t, db, "Flat", "Engineering", 100)
	seedUsage(t, db, flat.ID, 100, prevMonth)
	seedUsage(t, db, flat.ID, 100, currMonth)

	result, err := svc.Recompute(ctx, 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Individuals)
	assert.Equal(t, 0, result.Departments)
}

func TestRecomputeAggregatesDepartments(t *testing.T) {
	svc, db := newRankingsService(t)
	ctx := context.Background()

	// Engineering: 20% and 10% -> avg 15, points 300
	a := seedRankedAccount(t, db, "A", "Engineering", 100)
	seedUsage(t, db, a.ID, 100, prevMonth)
	seedUsage(t, db, a.ID, 80, currMonth)
	b := seedRankedAccount(t, db, "B", "Engineering", 200)
	seedUsage(t, db, b.ID, 100, prevMonth)
	seedUsage(t, db, b.ID, 90, currMonth)

	// Sales: 30% -> avg 30
	c := seedRankedAccount(t, db, "C", "Sales", 50)
	seedUsage(t, db, c.ID, 100, prevMonth)
	seedUsage(t, db, c.ID, 70, currMonth)

	// Marketing increased usage: not ranked, no department row
	d := seedRankedAccount(t, db, "D", "Marketing", 999)
	seedUsage(t, db, d.ID, 100, prevMonth)
	seedUsage(t, db, d.ID, 150, currMonth)

	_, err := svc.Recompute(ctx, 2025, 3)
	require.NoError(t, err)

	departments, err := svc.Departments(ctx, 2025, 3)
	require.NoError(t, err)
	require.Len(t, departments, 2)

	assert.Equal(t, "Sales", departments[0].Department)
	assert.Equal(t, 1, departments[0].Rank)
	assert.Equal(t, 1, departments[0].MemberCount)

	assert.Equal(t, "Engineering", departments[1].Department)
	assert.Equal(t, 2, departments[1].Rank)
	assert.Equal(t, 2, departments[1].MemberCount)
	assert.Equal(t, "15", departments[1].AvgReductionRate.String())
	assert.Equal(t, 300, departments[1].TotalPoints)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	svc, db := newRankingsService(t)
	ctx := context.Background()

	account := seedRankedAccount(t, db, "A", "Engineering", 100)
	seedUsage(t, db, account.ID, 100, prevMonth)
	seedUsage(t, db, account.ID, 80, currMonth)

	_, err := svc.Recompute(ctx, 2025, 3)
	require.NoError(t, err)
	first, err := svc.Individual(ctx, 2025, 3, 0)
	require.NoError(t, err)

	_, err = svc.Recompute(ctx, 2025, 3)
	require.NoError(t, err)
	second, err := svc.Individual(ctx, 2025, 3, 0)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Rank, second[i].Rank)
		assert.Equal(t, first[i].AccountID, second[i].AccountID)
		assert.True(t, first[i].ReductionRate.Equal(second[i].ReductionRate))
	}

	var count int64
	require.NoError(t, db.Model(&models.IndividualRanking{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecomputeLeavesOtherPeriodsAlone(t *testing.T) {
	svc, db := newRankingsService(t)
	ctx := context.Background()

	account := seedRankedAccount(t, db, "A", "Engineering", 100)
	seedUsage(t, db, account.ID, 100, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	seedUsage(t, db, account.ID, 80, prevMonth)
	seedUsage(t, db, account.ID, 70, currMonth)

	_, err := svc.Recompute(ctx, 2025, 2)
	require.NoError(t, err)
	_, err = svc.Recompute(ctx, 2025, 3)
	require.NoError(t, err)

	february, err := svc.Individual(ctx, 2025, 2, 0)
	require.NoError(t, err)
	march, err := svc.Individual(ctx, 2025, 3, 0)
	require.NoError(t, err)
	assert.Len(t, february, 1)
	assert.Len(t, march, 1)
}

func TestIndividualKeepsNamesOfDeactivatedAccounts(t *testing.T) {
	svc, db := newRankingsService(t)
	ctx := context.Background()

	alice := seedRankedAccount(t, db, "Alice", "Engineering", 100)
	seedUsage(t, db, alice.ID, 100, prevMonth)
	seedUsage(t, db, alice.ID, 80, currMonth)

	_, err := svc.Recompute(ctx, 2025, 3)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Account{}).
		Where("id = ?", alice.ID).
		Update("is_active", false).Error)

	entries, err := svc.Individual(ctx, 2025, 3, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Alice", entries[0].Name)
	assert.Equal(t, "Engineering", entries[0].Department)
}

func TestPositionReportsUnrankedAccounts(t *testing.T) {
	svc, db := newRankingsService(t)
	ctx := context.Background()

	ranked := seedRankedAccount(t, db, "Ranked", "Engineering", 100)
	seedUsage(t, db, ranked.ID, 100, prevMonth)
	seedUsage(t, db, ranked.ID, 80, currMonth)

	unranked := seedRankedAccount(t, db, "Unranked", "Sales", 100)
	seedUsage(t, db, unranked.ID, 100, currMonth)

	_, err := svc.Recompute(ctx, 2025, 3)
	require.NoError(t, err)

	pos, err := svc.Position(ctx, ranked.ID, 2025, 3)
	require.NoError(t, err)
	assert.True(t, pos.Ranked)
	assert.Equal(t, 1, pos.Rank)
	assert.Equal(t, int64(1), pos.Participants)

	pos, err = svc.Position(ctx, unranked.ID, 2025, 3)
	require.NoError(t, err)
	assert.False(t, pos.Ranked)
	assert.Equal(t, int64(1), pos.Participants)
}

func TestAchievements(t *testing.T) {
	svc, db := newRankingsService(t)
	ctx := context.Background()

	account := seedRankedAccount(t, db, "A", "Engineering", 100)
	repo := NewRepository(db)
	rows := []models.IndividualRanking{
		{AccountID: account.ID, Year: 2025, Month: 1, Rank: 1, ReductionRate: decimal.NewFromInt(20), TotalPoints: 400},
		{AccountID: account.ID, Year: 2025, Month: 2, Rank: 8, ReductionRate: decimal.NewFromInt(5), TotalPoints: 600},
		{AccountID: account.ID, Year: 2025, Month: 3, Rank: 4, ReductionRate: decimal.NewFromInt(9), TotalPoints: 1200},
	}
	require.NoError(t, repo.InsertIndividual(ctx, rows))

	achievements, err := svc.Achievements(ctx, account.ID)
	require.NoError(t, err)

	earned := map[string]bool{}
	for _, a := range achievements {
		earned[a.Code] = a.Earned
	}
	assert.True(t, earned[achievementMonthlyWinner])
	assert.True(t, earned[achievementTopTenStreak])
	assert.True(t, earned[achievementBigReduction])
	assert.True(t, earned[achievementPointsMilestone])
}

func TestAchievementsEmptyHistory(t *testing.T) {
	svc, _ := newRankingsService(t)

	achievements, err := svc.Achievements(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, achievements, 4)
	for _, a := range achievements {
		assert.False(t, a.Earned, a.Code)
	}
}
