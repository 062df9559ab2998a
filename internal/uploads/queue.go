package uploads

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Handler processes one enqueued upload.
type Handler interface {
	Process(ctx context.Context, uploadID uuid.UUID)
}

// Queue hands upload IDs to a background worker over a buffered channel.
// Single-instance by construction; the BillUpload row carries the observable
// status for clients polling the API.
type Queue struct {
	jobs      chan uuid.UUID
	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(bufferSize int) *Queue {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Queue{
		jobs:   make(chan uuid.UUID, bufferSize),
		closed: make(chan struct{}),
	}
}

// Enqueue hands off an upload for processing. It fails fast when the buffer
// is full so the caller can mark the row failed instead of blocking a request.
func (q *Queue) Enqueue(ctx context.Context, uploadID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-q.closed:
		return fmt.Errorf("upload queue is closed")
	default:
	}

	select {
	case q.jobs <- uploadID:
		return nil
	default:
		return fmt.Errorf("upload queue is full")
	}
}

// Start launches workers that drain the queue until the context is cancelled
// or the queue is closed.
func (q *Queue) Start(ctx context.Context, workers int, handler Handler) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
}

func (q *Queue) worker(ctx context.Context, handler Handler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case uploadID := <-q.jobs:
			handler.Process(ctx, uploadID)
		case <-q.closed:
			// No new enqueues past this point; finish what is buffered so
			// accepted uploads don't sit in pending forever.
			for {
				select {
				case uploadID := <-q.jobs:
					handler.Process(ctx, uploadID)
				default:
					return
				}
			}
		}
	}
}

// Close stops accepting new jobs, waits for the workers to drain the buffer,
// and returns once every accepted job has been handled.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
	q.wg.Wait()
}
