package uploads

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/ecochamp/ecochamp-backend/pkg/config"
	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
	"github.com/ecochamp/ecochamp-backend/pkg/pagination"
)

// BlobStore abstracts the raw file storage. Both the GCS client and the local
// disk store satisfy it.
type BlobStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error)
	Download(ctx context.Context, object string) (io.ReadCloser, error)
}

// Enqueuer hands an accepted upload to the background processor.
type Enqueuer interface {
	Enqueue(ctx context.Context, uploadID uuid.UUID) error
}

var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
}

// Service accepts bill uploads and serves their processing status.
type Service interface {
	Upload(ctx context.Context, accountID uuid.UUID, input UploadInput) (*models.BillUpload, error)
	Get(ctx context.Context, accountID, uploadID uuid.UUID) (*models.BillUpload, error)
	List(ctx context.Context, accountID uuid.UUID, page pagination.Params) (pagination.Page[models.BillUpload], error)
}

type service struct {
	repo  Repository
	store BlobStore
	queue Enqueuer
	cfg   config.UploadsConfig
	logg  *logger.Logger
}

// UploadInput describes one incoming multipart file.
type UploadInput struct {
	Filename    string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
}

// NewService wires the upload intake with its repository, blob store and queue.
func NewService(repo Repository, store BlobStore, queue Enqueuer, cfg config.UploadsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if queue == nil {
		return nil, fmt.Errorf("upload queue required")
	}
	return &service{repo: repo, store: store, queue: queue, cfg: cfg, logg: logg}, nil
}

func (s *service) Upload(ctx context.Context, accountID uuid.UUID, input UploadInput) (*models.BillUpload, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account identity missing")
	}

	filename, err := sanitizeFilename(input.Filename)
	if err != nil {
		return nil, err
	}

	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported file type").
			WithDetails(map[string]any{"content_type": contentType, "allowed": []string{"application/pdf", "image/png", "image/jpeg"}})
	}

	maxBytes := int64(s.cfg.MaxUploadMB) * 1024 * 1024
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if maxBytes > 0 && input.SizeBytes > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds the upload size limit").
			WithDetails(map[string]any{"max_mb": s.cfg.MaxUploadMB})
	}

	upload := &models.BillUpload{
		ID:          uuid.New(),
		AccountID:   accountID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   input.SizeBytes,
		Status:      enums.UploadStatusPending,
	}
	if err := s.repo.Create(ctx, upload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create upload record")
	}

	limit := maxBytes
	if limit <= 0 {
		limit = input.SizeBytes
	}
	object := ObjectKey(upload)
	url, err := s.store.Upload(ctx, object, contentType, io.LimitReader(input.Body, limit))
	if err != nil {
		s.failSilently(ctx, upload.ID, "storing file failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store file")
	}
	upload.StorageURL = url
	if err := s.repo.SetStorageURL(ctx, upload.ID, url); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record storage url")
	}

	if err := s.queue.Enqueue(ctx, upload.ID); err != nil {
		s.failSilently(ctx, upload.ID, "processing queue unavailable")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue upload")
	}
	return upload, nil
}

// failSilently moves a fresh pending row to failed. Used on intake errors
// where the primary error is already being returned to the caller.
func (s *service) failSilently(ctx context.Context, id uuid.UUID, note string) {
	if err := s.repo.MarkProcessing(ctx, id); err != nil {
		return
	}
	if err := s.repo.Fail(ctx, id, note); err != nil && s.logg != nil {
		s.logg.Error(ctx, "marking upload failed", err)
	}
}

func (s *service) Get(ctx context.Context, accountID, uploadID uuid.UUID) (*models.BillUpload, error) {
	upload, err := s.repo.FindByID(ctx, uploadID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "upload not found")
	}
	if upload.AccountID != accountID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
	}
	return upload, nil
}

func (s *service) List(ctx context.Context, accountID uuid.UUID, page pagination.Params) (pagination.Page[models.BillUpload], error) {
	page = page.Normalize()
	rows, total, err := s.repo.ListByAccount(ctx, accountID, page)
	if err != nil {
		return pagination.Page[models.BillUpload]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list uploads")
	}
	return pagination.NewPage(rows, page, total), nil
}

// ObjectKey derives the storage object name for an upload. The processor
// recomputes it from the row, so the row itself stays the source of truth.
func ObjectKey(upload *models.BillUpload) string {
	return path.Join("bills", upload.AccountID.String(), upload.ID.String(), upload.Filename)
}

func sanitizeFilename(name string) (string, error) {
	cleaned := path.Base(strings.TrimSpace(name))
	if cleaned == "" || cleaned == "." || cleaned == "/" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	for _, r := range cleaned {
		if unicode.IsControl(r) {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "filename contains control characters")
		}
	}
	return cleaned, nil
}
