package worker

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"
)

// EnrichTicketArgs is the river job payload.
type EnrichTicketArgs struct {
	TicketID string `json:"ticket_id"`
}

// Kind returns the job kind for River.
func (EnrichTicketArgs) Kind() string {
	return "ticket_enrichment"
}

// EnrichmentWorker executes enrichment jobs.
type EnrichmentWorker struct {
	river.WorkerDefaults[EnrichTicketArgs]
	enricher *Enricher
}

// Work implements river.Worker. Enrichment failures are logged by the
// Enricher, so jobs complete on their single attempt.
func (w *EnrichmentWorker) Work(ctx context.Context, job *river.Job[EnrichTicketArgs]) error {
	w.enricher.Enrich(ctx, job.Args.TicketID)
	return nil
}

// RiverQueue persists enrichment jobs in Postgres through River.
type RiverQueue struct {
	client *river.Client[pgx.Tx]
	logger *zap.Logger
}

// NewRiverQueue migrates River's tables and builds the client.
func NewRiverQueue(ctx context.Context, pool *pgxpool.Pool, enricher *Enricher, workers int, logger *zap.Logger) (*RiverQueue, error) {
	if workers <= 0 {
		workers = 1
	}
	driver := riverpgxv5.New(pool)

	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("migrate river schema: %w", err)
	}

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, &EnrichmentWorker{enricher: enricher})

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: workers},
		},
		Workers: riverWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return &RiverQueue{client: client, logger: logger}, nil
}

// Start implements Queue.
func (q *RiverQueue) Start(ctx context.Context) error {
	q.logger.Info("river enrichment queue starting")
	return q.client.Start(ctx)
}

// Stop implements Queue.
func (q *RiverQueue) Stop(ctx context.Context) error {
	return q.client.Stop(ctx)
}

// EnqueueEnrichment inserts a single-attempt job.
func (q *RiverQueue) EnqueueEnrichment(ctx context.Context, ticketID string) error {
	_, err := q.client.Insert(ctx, EnrichTicketArgs{TicketID: ticketID}, &river.InsertOpts{MaxAttempts: 1})
	if err != nil {
		return fmt.Errorf("queue enrichment job: %w", err)
	}
	return nil
}
