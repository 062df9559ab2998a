package uploads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/ecochamp/ecochamp-backend/internal/ledger"
	"github.com/ecochamp/ecochamp-backend/pkg/config"
	"github.com/ecochamp/ecochamp-backend/pkg/db/models"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
)

// PointsAwarder is the slice of the ledger the processor needs.
type PointsAwarder interface {
	Award(ctx context.Context, input ledger.AwardInput) (*ledger.AwardResult, error)
}

// Processor drives one upload from pending to a terminal status. Failures are
// recorded on the row and never retried.
type Processor struct {
	repo   Repository
	store  BlobStore
	points PointsAwarder
	cfg    config.UploadsConfig
	logg   *logger.Logger
}

// NewProcessor wires the background bill processor.
func NewProcessor(repo Repository, store BlobStore, points PointsAwarder, cfg config.UploadsConfig, logg *logger.Logger) (*Processor, error) {
	if repo == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if points == nil {
		return nil, fmt.Errorf("points awarder required")
	}
	return &Processor{repo: repo, store: store, points: points, cfg: cfg, logg: logg}, nil
}

// Process implements Handler.
func (p *Processor) Process(ctx context.Context, uploadID uuid.UUID) {
	ctx = p.withUploadField(ctx, uploadID)

	upload, err := p.repo.FindByID(ctx, uploadID)
	if err != nil {
		p.logError(ctx, "loading upload", err)
		return
	}
	if upload.Status != enums.UploadStatusPending {
		return
	}
	if err := p.repo.MarkProcessing(ctx, uploadID); err != nil {
		p.logError(ctx, "claiming upload", err)
		return
	}

	extracted, points, err := p.extract(ctx, upload)
	if err != nil {
		p.fail(ctx, uploadID, err)
		return
	}

	description := "file upload: " + upload.Filename
	if _, err := p.points.Award(ctx, ledger.AwardInput{
		AccountID:   upload.AccountID,
		Amount:      points,
		Description: description,
	}); err != nil {
		p.fail(ctx, uploadID, fmt.Errorf("awarding points: %w", err))
		return
	}

	if err := p.repo.Complete(ctx, uploadID, extracted, points); err != nil {
		p.logError(ctx, "completing upload", err)
	}
}

func (p *Processor) extract(ctx context.Context, upload *models.BillUpload) (json.RawMessage, int, error) {
	body, err := p.store.Download(ctx, ObjectKey(upload))
	if err != nil {
		return nil, 0, fmt.Errorf("downloading file: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading file: %w", err)
	}

	switch {
	case upload.ContentType == "application/pdf":
		extracted, err := extractPDF(data, p.cfg.MaxExtractText)
		if err != nil {
			return nil, 0, err
		}
		return extracted, p.cfg.PDFPoints, nil
	case strings.HasPrefix(upload.ContentType, "image/"):
		extracted, err := extractImage(data)
		if err != nil {
			return nil, 0, err
		}
		return extracted, p.cfg.ImagePoints, nil
	default:
		return nil, 0, fmt.Errorf("unsupported content type %q", upload.ContentType)
	}
}

func (p *Processor) fail(ctx context.Context, uploadID uuid.UUID, cause error) {
	p.logError(ctx, "processing upload", cause)
	if err := p.repo.Fail(ctx, uploadID, cause.Error()); err != nil {
		p.logError(ctx, "marking upload failed", err)
	}
}

func (p *Processor) withUploadField(ctx context.Context, uploadID uuid.UUID) context.Context {
	if p.logg == nil {
		return ctx
	}
	return p.logg.WithField(ctx, "upload_id", uploadID.String())
}

func (p *Processor) logError(ctx context.Context, msg string, err error) {
	if p.logg == nil {
		return
	}
	p.logg.Error(ctx, msg, err)
}
