package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecochamp/ecochamp-backend/internal/ledger"
	"github.com/ecochamp/ecochamp-backend/pkg/config"
	"github.com/ecochamp/ecochamp-backend/pkg/enums"
	pkgerrors "github.com/ecochamp/ecochamp-backend/pkg/errors"
	"github.com/ecochamp/ecochamp-backend/pkg/pagination"
)

type stubBlobStore struct {
	objects   map[string][]byte
	uploadErr error
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{objects: map[string][]byte{}}
}

func (s *stubBlobStore) Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.objects[object] = data
	return "gs://test-bucket/" + object, nil
}

func (s *stubBlobStore) Download(ctx context.Context, object string) (io.ReadCloser, error) {
	data, ok := s.objects[object]
	if !ok {
		return nil, fmt.Errorf("object %q not found", object)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type stubEnqueuer struct {
	ids []uuid.UUID
	err error
}

func (s *stubEnqueuer) Enqueue(ctx context.Context, uploadID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, uploadID)
	return nil
}

type stubAwarder struct {
	inputs []ledger.AwardInput
	err    error
}

func (s *stubAwarder) Award(ctx context.Context, input ledger.AwardInput) (*ledger.AwardResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.inputs = append(s.inputs, input)
	return &ledger.AwardResult{Balance: input.Amount}, nil
}

func uploadsTestConfig() config.UploadsConfig {
	return config.UploadsConfig{
		MaxUploadMB:    1,
		QueueSize:      4,
		PDFPoints:      25,
		ImagePoints:    20,
		MaxExtractText: 200,
	}
}

func pdfBytes() []byte {
	return []byte("%PDF-1.4\n1 0 obj << /Type /Page >> endobj\n(Electric bill total 4200 yen)\n%%EOF")
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))))
	return buf.Bytes()
}

func TestUploadAcceptsAndEnqueues(t *testing.T) {
	db := setupUploadsTestDB(t)
	repo := NewRepository(db)
	store := newStubBlobStore()
	queue := &stubEnqueuer{}
	svc, err := NewService(repo, store, queue, uploadsTestConfig(), nil)
	require.NoError(t, err)

	accountID := uuid.New()
	body := pdfBytes()
	upload, err := svc.Upload(context.Background(), accountID, UploadInput{
		Filename:    "march-bill.pdf",
		ContentType: "application/pdf",
		SizeBytes:   int64(len(body)),
		Body:        bytes.NewReader(body),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.UploadStatusPending, upload.Status)
	assert.Equal(t, "gs://test-bucket/"+ObjectKey(upload), upload.StorageURL)
	require.Len(t, queue.ids, 1)
	assert.Equal(t, upload.ID, queue.ids[0])
	assert.Equal(t, body, store.objects[ObjectKey(upload)])
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, err := NewService(NewRepository(setupUploadsTestDB(t)), newStubBlobStore(), &stubEnqueuer{}, uploadsTestConfig(), nil)
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(), uuid.New(), UploadInput{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		SizeBytes:   10,
		Body:        strings.NewReader("hello"),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc, err := NewService(NewRepository(setupUploadsTestDB(t)), newStubBlobStore(), &stubEnqueuer{}, uploadsTestConfig(), nil)
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(), uuid.New(), UploadInput{
		Filename:    "huge.pdf",
		ContentType: "application/pdf",
		SizeBytes:   2 * 1024 * 1024,
		Body:        bytes.NewReader(pdfBytes()),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUploadFailsRowWhenQueueIsFull(t *testing.T) {
	db := setupUploadsTestDB(t)
	repo := NewRepository(db)
	queue := &stubEnqueuer{err: fmt.Errorf("upload queue is full")}
	svc, err := NewService(repo, newStubBlobStore(), queue, uploadsTestConfig(), nil)
	require.NoError(t, err)

	body := pdfBytes()
	_, err = svc.Upload(context.Background(), uuid.New(), UploadInput{
		Filename:    "bill.pdf",
		ContentType: "application/pdf",
		SizeBytes:   int64(len(body)),
		Body:        bytes.NewReader(body),
	})
	require.Error(t, err)

	var rows []struct{ Status enums.UploadStatus }
	require.NoError(t, db.Table("bill_uploads").Select("status").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.UploadStatusFailed, rows[0].Status)
}

func TestGetHidesOtherAccountsUploads(t *testing.T) {
	db := setupUploadsTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo, newStubBlobStore(), &stubEnqueuer{}, uploadsTestConfig(), nil)
	require.NoError(t, err)

	upload := seedUpload(t, db, enums.UploadStatusPending)

	got, err := svc.Get(context.Background(), upload.AccountID, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, upload.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New(), upload.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListReturnsPage(t *testing.T) {
	db := setupUploadsTestDB(t)
	svc, err := NewService(NewRepository(db), newStubBlobStore(), &stubEnqueuer{}, uploadsTestConfig(), nil)
	require.NoError(t, err)

	upload := seedUpload(t, db, enums.UploadStatusPending)

	page, err := svc.List(context.Background(), upload.AccountID, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, upload.ID, page.Items[0].ID)
}

func processUpload(t *testing.T, contentType, filename string, body []byte, awarder *stubAwarder) (*Processor, Repository, *stubBlobStore, uuid.UUID) {
	t.Helper()

	db := setupUploadsTestDB(t)
	repo := NewRepository(db)
	store := newStubBlobStore()
	svc, err := NewService(repo, store, &stubEnqueuer{}, uploadsTestConfig(), nil)
	require.NoError(t, err)

	upload, err := svc.Upload(context.Background(), uuid.New(), UploadInput{
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(body)),
		Body:        bytes.NewReader(body),
	})
	require.NoError(t, err)

	processor, err := NewProcessor(repo, store, awarder, uploadsTestConfig(), nil)
	require.NoError(t, err)
	processor.Process(context.Background(), upload.ID)
	return processor, repo, store, upload.ID
}

func TestProcessCompletesPDFAndAwardsPoints(t *testing.T) {
	awarder := &stubAwarder{}
	_, repo, _, uploadID := processUpload(t, "application/pdf", "march-bill.pdf", pdfBytes(), awarder)

	row, err := repo.FindByID(context.Background(), uploadID)
	require.NoError(t, err)
	assert.Equal(t, enums.UploadStatusCompleted, row.Status)
	assert.Equal(t, 25, row.PointsEarned)

	var extracted map[string]any
	require.NoError(t, json.Unmarshal(row.Extracted, &extracted))
	assert.Equal(t, "pdf", extracted["kind"])
	assert.Contains(t, extracted["text"], "Electric bill total 4200 yen")

	require.Len(t, awarder.inputs, 1)
	assert.Equal(t, 25, awarder.inputs[0].Amount)
	assert.Equal(t, "file upload: march-bill.pdf", awarder.inputs[0].Description)
}

func TestProcessCompletesImageWithDimensions(t *testing.T) {
	awarder := &stubAwarder{}
	_, repo, _, uploadID := processUpload(t, "image/png", "meter.png", pngBytes(t), awarder)

	row, err := repo.FindByID(context.Background(), uploadID)
	require.NoError(t, err)
	assert.Equal(t, enums.UploadStatusCompleted, row.Status)
	assert.Equal(t, 20, row.PointsEarned)

	var extracted map[string]any
	require.NoError(t, json.Unmarshal(row.Extracted, &extracted))
	assert.Equal(t, "image", extracted["kind"])
	assert.Equal(t, "png", extracted["format"])
	assert.Equal(t, float64(3), extracted["width"])
	assert.Equal(t, float64(2), extracted["height"])

	require.Len(t, awarder.inputs, 1)
	assert.Equal(t, 20, awarder.inputs[0].Amount)
}

func TestProcessFailsCorruptFileTerminally(t *testing.T) {
	awarder := &stubAwarder{}
	_, repo, _, uploadID := processUpload(t, "application/pdf", "broken.pdf", []byte("not a pdf at all"), awarder)

	row, err := repo.FindByID(context.Background(), uploadID)
	require.NoError(t, err)
	assert.Equal(t, enums.UploadStatusFailed, row.Status)
	assert.Contains(t, row.FailureNote, "not a valid PDF")
	assert.Empty(t, awarder.inputs)

	// terminal: reprocessing is a no-op
	processor, err := NewProcessor(repo, newStubBlobStore(), awarder, uploadsTestConfig(), nil)
	require.NoError(t, err)
	processor.Process(context.Background(), uploadID)
	row, err = repo.FindByID(context.Background(), uploadID)
	require.NoError(t, err)
	assert.Equal(t, enums.UploadStatusFailed, row.Status)
	assert.Empty(t, awarder.inputs)
}

func TestProcessFailsWhenAwardFails(t *testing.T) {
	awarder := &stubAwarder{err: fmt.Errorf("ledger unavailable")}
	_, repo, _, uploadID := processUpload(t, "application/pdf", "bill.pdf", pdfBytes(), awarder)

	row, err := repo.FindByID(context.Background(), uploadID)
	require.NoError(t, err)
	assert.Equal(t, enums.UploadStatusFailed, row.Status)
	assert.Contains(t, row.FailureNote, "awarding points")
}

func TestQueueDeliversToHandler(t *testing.T) {
	queue := NewQueue(2)
	defer queue.Close()

	done := make(chan uuid.UUID, 1)
	queue.Start(context.Background(), 1, handlerFunc(func(ctx context.Context, id uuid.UUID) {
		done <- id
	}))

	id := uuid.New()
	require.NoError(t, queue.Enqueue(context.Background(), id))
	assert.Equal(t, id, <-done)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	queue := NewQueue(1)
	defer queue.Close()

	// no workers started, so the buffer fills immediately
	require.NoError(t, queue.Enqueue(context.Background(), uuid.New()))
	err := queue.Enqueue(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")
}

func TestQueueDrainsBufferedJobsOnClose(t *testing.T) {
	queue := NewQueue(4)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, queue.Enqueue(context.Background(), id))
	}

	processed := make(chan uuid.UUID, len(ids))
	queue.Start(context.Background(), 1, handlerFunc(func(ctx context.Context, id uuid.UUID) {
		processed <- id
	}))

	// Close must wait until every job accepted before it was called has
	// been handed to the processor.
	queue.Close()
	close(processed)

	seen := map[uuid.UUID]bool{}
	for id := range processed {
		seen[id] = true
	}
	require.Len(t, seen, len(ids))
	for _, id := range ids {
		assert.True(t, seen[id])
	}

	err := queue.Enqueue(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

type handlerFunc func(ctx context.Context, uploadID uuid.UUID)

func (f handlerFunc) Process(ctx context.Context, uploadID uuid.UUID) {
	f(ctx, uploadID)
}
