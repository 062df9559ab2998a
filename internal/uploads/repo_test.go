package uploads

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
	"github.com/ecochamp/ecochamp-backend/pkg/pagination"
)

func setupUploadsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS bill_uploads (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  filename TEXT NOT NULL,
  content_type TEXT NOT NULL,
  size_bytes INTEGER NOT NULL,
  storage_url TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
  extracted TEXT,
  points_earned INTEGER NOT NULL DEFAULT 0,
  failure_note TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func seedUpload(t *testing.T, db *gorm.DB, status enums.UploadStatus) *models.BillUpload {
	t.Helper()

	upload := &models.BillUpload{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		Filename:    "march-bill.pdf",
		ContentType: "application/pdf",
		SizeBytes:   2048,
		Status:      status,
	}
	require.NoError(t, db.Create(upload).Error)
	return upload
}

func TestStatusTransitions(t *testing.T) {
	db := setupUploadsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	upload := seedUpload(t, db, enums.UploadStatusPending)

	require.NoError(t, repo.MarkProcessing(ctx, upload.ID))
	extracted := json.RawMessage(`{"kind":"pdf","pages":2}`)
	require.NoError(t, repo.Complete(ctx, upload.ID, extracted, 25))

	reloaded, err := repo.FindByID(ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UploadStatusCompleted, reloaded.Status)
	assert.Equal(t, 25, reloaded.PointsEarned)
	assert.JSONEq(t, string(extracted), string(reloaded.Extracted))
}

func TestTerminalStatesAreFinal(t *testing.T) {
	db := setupUploadsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	completed := seedUpload(t, db, enums.UploadStatusCompleted)
	err := repo.MarkProcessing(ctx, completed.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	failed := seedUpload(t, db, enums.UploadStatusFailed)
	require.Error(t, repo.MarkProcessing(ctx, failed.ID))
	require.Error(t, repo.Complete(ctx, failed.ID, nil, 10))
}

func TestFailRequiresProcessing(t *testing.T) {
	db := setupUploadsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	pending := seedUpload(t, db, enums.UploadStatusPending)
	require.Error(t, repo.Fail(ctx, pending.ID, "nope"))

	require.NoError(t, repo.MarkProcessing(ctx, pending.ID))
	require.NoError(t, repo.Fail(ctx, pending.ID, "unreadable file"))

	reloaded, err := repo.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UploadStatusFailed, reloaded.Status)
	assert.Equal(t, "unreadable file", reloaded.FailureNote)
}

func TestListByAccountPaginates(t *testing.T) {
	db := setupUploadsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	for i := 0; i < 3; i++ {
		upload := &models.BillUpload{
			ID:          uuid.New(),
			AccountID:   accountID,
			Filename:    "bill.pdf",
			ContentType: "application/pdf",
			SizeBytes:   100,
			Status:      enums.UploadStatusPending,
		}
		require.NoError(t, db.Create(upload).Error)
	}
	seedUpload(t, db, enums.UploadStatusPending) // other account

	rows, total, err := repo.ListByAccount(ctx, accountID, pagination.Params{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 2)
}
