package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	"github.com/ecochamp/ecochamp-backend/pkg/pagination"
)

// Repository manages persistence for ledger entries and the cached account
// balance they roll up to.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, kind *enums.LedgerEntryKind, params pagination.Params) ([]models.LedgerEntry, int64, error)
	SumDeltas(ctx context.Context, accountID uuid.UUID) (int64, error)
	GetAccountForUpdate(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
	SetAccountPoints(ctx context.Context, accountID uuid.UUID, points int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, kind *enums.LedgerEntryKind, params pagination.Params) ([]models.LedgerEntry, int64, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("account_id = ?", accountID)
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.LedgerEntry
	if err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) SumDeltas(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var sum *int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("account_id = ?", accountID).
		Select("SUM(delta)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// GetAccountForUpdate locks the account row for the rest of the transaction.
// SQLite has no row locks; its transactions are already serialized.
func (r *repository) GetAccountForUpdate(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var account models.Account
	if err := query.First(&account, "id = ?", accountID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", accountID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) SetAccountPoints(ctx context.Context, accountID uuid.UUID, points int) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("points", points).Error
}
