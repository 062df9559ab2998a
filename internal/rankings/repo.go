package rankings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
)

// Repository manages the ranking snapshot tables. Snapshot rows for a period
// are only ever replaced wholesale, never updated.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	DeletePeriod(ctx context.Context, year, month int) error
	InsertIndividual(ctx context.Context, rows []models.IndividualRanking) error
	InsertDepartments(ctx context.Context, rows []models.DepartmentRanking) error
	ListIndividual(ctx context.Context, year, month, limit int) ([]models.IndividualRanking, error)
	ListDepartments(ctx context.Context, year, month int) ([]models.DepartmentRanking, error)
	FindPosition(ctx context.Context, accountID uuid.UUID, year, month int) (*models.IndividualRanking, int64, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.IndividualRanking, error)
	ListActiveAccounts(ctx context.Context) ([]models.Account, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a rankings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) DeletePeriod(ctx context.Context, year, month int) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("year = ? AND month = ?", year, month).
		Delete(&models.IndividualRanking{}).Error; err != nil {
		return err
	}
	return tx.Where("year = ? AND month = ?", year, month).
		Delete(&models.DepartmentRanking{}).Error
}

func (r *repository) InsertIndividual(ctx context.Context, rows []models.IndividualRanking) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) InsertDepartments(ctx context.Context, rows []models.DepartmentRanking) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) ListIndividual(ctx context.Context, year, month, limit int) ([]models.IndividualRanking, error) {
	query := r.db.WithContext(ctx).
		Where("year = ? AND month = ?", year, month).
		Order("rank ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.IndividualRanking
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListDepartments(ctx context.Context, year, month int) ([]models.DepartmentRanking, error) {
	var rows []models.DepartmentRanking
	if err := r.db.WithContext(ctx).
		Where("year = ? AND month = ?", year, month).
		Order("rank ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindPosition(ctx context.Context, accountID uuid.UUID, year, month int) (*models.IndividualRanking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.IndividualRanking{}).
		Where("year = ? AND month = ?", year, month).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var row models.IndividualRanking
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND year = ? AND month = ?", accountID, year, month).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, total, nil
		}
		return nil, 0, err
	}
	return &row, total, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.IndividualRanking, error) {
	var rows []models.IndividualRanking
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("year DESC, month DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListActiveAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
