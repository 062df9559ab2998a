package uploads

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
	"github.com/ecochamp/ecochamp-backend/pkg/pagination"
)

// Repository persists bill uploads. Status transitions are guarded in SQL so
// a row can never leave a terminal state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, upload *models.BillUpload) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BillUpload, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, page pagination.Params) ([]models.BillUpload, int64, error)
	SetStorageURL(ctx context.Context, id uuid.UUID, url string) error
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, extracted json.RawMessage, pointsEarned int) error
	Fail(ctx context.Context, id uuid.UUID, note string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an uploads repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, upload *models.BillUpload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BillUpload, error) {
	var upload models.BillUpload
	if err := r.db.WithContext(ctx).First(&upload, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, page pagination.Params) ([]models.BillUpload, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.BillUpload{}).
		Where("account_id = ?", accountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BillUpload
	if err := query.
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) SetStorageURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).
		Model(&models.BillUpload{}).
		Where("id = ?", id).
		UpdateColumn("storage_url", url).Error
}

// MarkProcessing moves a pending upload to processing. Any other starting
// state is a conflict.
func (r *repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, enums.UploadStatusPending, map[string]any{
		"status": enums.UploadStatusProcessing,
	})
}

func (r *repository) Complete(ctx context.Context, id uuid.UUID, extracted json.RawMessage, pointsEarned int) error {
	return r.transition(ctx, id, enums.UploadStatusProcessing, map[string]any{
		"status":        enums.UploadStatusCompleted,
		"extracted":     extracted,
		"points_earned": pointsEarned,
	})
}

func (r *repository) Fail(ctx context.Context, id uuid.UUID, note string) error {
	return r.transition(ctx, id, enums.UploadStatusProcessing, map[string]any{
		"status":       enums.UploadStatusFailed,
		"failure_note": note,
	})
}

func (r *repository) transition(ctx context.Context, id uuid.UUID, from enums.UploadStatus, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.BillUpload{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "upload is not in the expected state")
	}
	return nil
}
