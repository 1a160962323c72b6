package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the in-process buffer has no room.
var ErrQueueFull = errors.New("enrichment queue full")

// ErrQueueStopped is returned after Stop.
var ErrQueueStopped = errors.New("enrichment queue stopped")

// Queue schedules ticket enrichment in the background.
type Queue interface {
	EnqueueEnrichment(ctx context.Context, ticketID string) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// PoolQueue runs enrichment on a fixed set of goroutines fed by a buffered channel.
type PoolQueue struct {
	enricher *Enricher
	logger   *zap.Logger
	workers  int
	timeout  time.Duration

	jobs    chan string
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
}

// NewPoolQueue builds an in-process queue. jobTimeout bounds each enrichment.
func NewPoolQueue(enricher *Enricher, logger *zap.Logger, workers, buffer int, jobTimeout time.Duration) *PoolQueue {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &PoolQueue{
		enricher: enricher,
		logger:   logger,
		workers:  workers,
		timeout:  jobTimeout,
		jobs:     make(chan string, buffer),
	}
}

// Start launches the workers. They run until Stop.
func (q *PoolQueue) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run(ctx)
	}
	q.logger.Info("enrichment workers started", zap.Int("workers", q.workers))
	return nil
}

func (q *PoolQueue) run(ctx context.Context) {
	defer q.wg.Done()
	for ticketID := range q.jobs {
		jobCtx, cancel := ctx, context.CancelFunc(func() {})
		if q.timeout > 0 {
			jobCtx, cancel = context.WithTimeout(ctx, q.timeout)
		}
		q.enricher.Enrich(jobCtx, ticketID)
		cancel()
	}
}

// EnqueueEnrichment never blocks: a full buffer returns ErrQueueFull.
func (q *PoolQueue) EnqueueEnrichment(_ context.Context, ticketID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return ErrQueueStopped
	}
	select {
	case q.jobs <- ticketID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued jobs to drain or ctx to end.
func (q *PoolQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		if q.cancel != nil {
			q.cancel()
		}
		return nil
	case <-ctx.Done():
		if q.cancel != nil {
			q.cancel()
		}
		return ctx.Err()
	}
}

// InlineQueue runs enrichment synchronously inside EnqueueEnrichment.
type InlineQueue struct {
	enricher *Enricher
}

// NewInlineQueue builds an InlineQueue.
func NewInlineQueue(enricher *Enricher) *InlineQueue {
	return &InlineQueue{enricher: enricher}
}

// EnqueueEnrichment implements Queue.
func (q *InlineQueue) EnqueueEnrichment(ctx context.Context, ticketID string) error {
	q.enricher.Enrich(context.WithoutCancel(ctx), ticketID)
	return nil
}

// Start implements Queue.
func (q *InlineQueue) Start(context.Context) error { return nil }

// Stop implements Queue.
func (q *InlineQueue) Stop(context.Context) error { return nil }
