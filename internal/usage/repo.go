package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
)

// Repository manages persistence for metered usage rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.UsageRecord) error
	ListByAccountPeriod(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]models.UsageRecord, error)
	ListByAccountSince(ctx context.Context, accountID uuid.UUID, since time.Time) ([]models.UsageRecord, error)
	TotalsByAccount(ctx context.Context, from, to time.Time) (map[uuid.UUID]TypeTotals, error)
}

// TypeTotals accumulates one account's usage per energy type for a period.
type TypeTotals map[enums.EnergyType]float64

type repository struct {
	db *gorm.DB
}

// NewRepository returns a usage repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.UsageRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListByAccountPeriod(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND usage_date >= ? AND usage_date < ?", accountID, from, to).
		Order("usage_date ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListByAccountSince(ctx context.Context, accountID uuid.UUID, since time.Time) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND usage_date >= ?", accountID, since).
		Order("usage_date ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// TotalsByAccount sums usage amounts per account and energy type over the
// half-open interval [from, to).
func (r *repository) TotalsByAccount(ctx context.Context, from, to time.Time) (map[uuid.UUID]TypeTotals, error) {
	type row struct {
		AccountID  uuid.UUID
		EnergyType enums.EnergyType
		Total      float64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.UsageRecord{}).
		Select("account_id, energy_type, SUM(amount) AS total").
		Where("usage_date >= ? AND usage_date < ?", from, to).
		Group("account_id, energy_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]TypeTotals, len(rows))
	for _, rw := range rows {
		if totals[rw.AccountID] == nil {
			totals[rw.AccountID] = TypeTotals{}
		}
		totals[rw.AccountID][rw.EnergyType] += rw.Total
	}
	return totals, nil
}
