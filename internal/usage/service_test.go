package usage

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

	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
)

func setupUsageTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	records := `
CREATE TABLE IF NOT EXISTS usage_records (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  energy_type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  cost NUMERIC NOT NULL,
  unit TEXT NOT NULL DEFAULT '',
  usage_date DATETIME NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(records).Error)
	return db
}

func newUsageService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewRepository(setupUsageTestDB(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func record(t *testing.T, svc Service, accountID uuid.UUID, energyType enums.EnergyType, amount float64, date time.Time) {
	t.Helper()
	_, err := svc.Record(context.Background(), RecordInput{
		AccountID:  accountID,
		EnergyType: energyType,
		Amount:     decimal.NewFromFloat(amount),
		Cost:       decimal.NewFromInt(10),
		UsageDate:  date,
	})
	require.NoError(t, err)
}

func TestRecordDefaultsUnit(t *testing.T) {
	svc, _ := newUsageService(t)

	created, err := svc.Record(context.Background(), RecordInput{
		AccountID:  uuid.New(),
		EnergyType: enums.EnergyTypeElectricity,
		Amount:     decimal.NewFromInt(120),
		Cost:       decimal.NewFromInt(30),
		UsageDate:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "kWh", created.Unit)
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	svc, _ := newUsageService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, RecordInput{
		AccountID:  uuid.New(),
		EnergyType: enums.EnergyType("steam"),
		Amount:     decimal.NewFromInt(1),
		UsageDate:  time.Now(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.Record(ctx, RecordInput{
		AccountID:  uuid.New(),
		EnergyType: enums.EnergyTypeGas,
		Amount:     decimal.NewFromInt(-3),
		UsageDate:  time.Now(),
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestMonthlySummaryComputesReduction(t *testing.T) {
	svc, _ := newUsageService(t)
	accountID := uuid.New()

	// previous month 200, current month 170 -> 15.0% reduction
	record(t, svc, accountID, enums.EnergyTypeElectricity, 200, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC))
	record(t, svc, accountID, enums.EnergyTypeElectricity, 100, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
	record(t, svc, accountID, enums.EnergyTypeElectricity, 70, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))

	summary, err := svc.MonthlySummary(context.Background(), accountID, 2025, 3)
	require.NoError(t, err)

	electricity := typeSummary(t, summary, enums.EnergyTypeElectricity)
	assert.True(t, electricity.Current.Equal(decimal.NewFromInt(170)), "current=%s", electricity.Current)
	assert.True(t, electricity.Previous.Equal(decimal.NewFromInt(200)), "previous=%s", electricity.Previous)
	assert.Equal(t, "15", electricity.ReductionRate.String())
}

func TestMonthlySummaryZeroPreviousMonth(t *testing.T) {
	svc, _ := newUsageService(t)
	accountID := uuid.New()

	record(t, svc, accountID, enums.EnergyTypeGas, 40, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))

	summary, err := svc.MonthlySummary(context.Background(), accountID, 2025, 3)
	require.NoError(t, err)

	gas := typeSummary(t, summary, enums.EnergyTypeGas)
	assert.True(t, gas.ReductionRate.IsZero())
	assert.True(t, gas.Previous.IsZero())
}

func TestMonthlySummaryRoundsToOneDecimal(t *testing.T) {
	svc, _ := newUsageService(t)
	accountID := uuid.New()

	// 3 -> 2: 33.333...% rounds to 33.3
	record(t, svc, accountID, enums.EnergyTypeWater, 3, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))
	record(t, svc, accountID, enums.EnergyTypeWater, 2, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))

	summary, err := svc.MonthlySummary(context.Background(), accountID, 2025, 3)
	require.NoError(t, err)

	water := typeSummary(t, summary, enums.EnergyTypeWater)
	assert.Equal(t, "33.3", water.ReductionRate.String())
}

func TestMonthlySummaryCoversAllTypes(t *testing.T) {
	svc, _ := newUsageService(t)

	summary, err := svc.MonthlySummary(context.Background(), uuid.New(), 2025, 3)
	require.NoError(t, err)
	assert.Len(t, summary.Types, len(enums.EnergyTypes()))
}

func TestMonthlySummaryRejectsBadPeriod(t *testing.T) {
	svc, _ := newUsageService(t)

	_, err := svc.MonthlySummary(context.Background(), uuid.New(), 2025, 13)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestTotalsByAccountGroupsPerType(t *testing.T) {
	svc, repo := newUsageService(t)
	first := uuid.New()
	second := uuid.New()

	record(t, svc, first, enums.EnergyTypeElectricity, 100, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	record(t, svc, first, enums.EnergyTypeElectricity, 50, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	record(t, svc, second, enums.EnergyTypeGas, 20, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))

	totals, err := repo.TotalsByAccount(context.Background(),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.InDelta(t, 150, totals[first][enums.EnergyTypeElectricity], 0.001)
	assert.InDelta(t, 20, totals[second][enums.EnergyTypeGas], 0.001)
}

func typeSummary(t *testing.T, summary *Summary, energyType enums.EnergyType) TypeSummary {
	t.Helper()
	for _, ts := range summary.Types {
		if ts.EnergyType == energyType {
			return ts
		}
	}
	t.Fatalf("no summary for %s", energyType)
	return TypeSummary{}
}
