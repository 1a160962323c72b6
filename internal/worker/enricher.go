// Package worker runs background ticket enrichment.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/ai"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Enricher analyzes a stored ticket and writes the four AI fields.
type Enricher struct {
	tickets  repository.TicketRepository
	analyzer ai.Analyzer
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewEnricher builds an Enricher.
func NewEnricher(tickets repository.TicketRepository, analyzer ai.Analyzer, logger *zap.Logger, metrics *observability.Metrics) *Enricher {
	return &Enricher{tickets: tickets, analyzer: analyzer, logger: logger, metrics: metrics}
}

// Enrich makes a single analysis attempt. Every failure is logged, counted
// and dropped, leaving the ticket untouched.
func (e *Enricher) Enrich(ctx context.Context, ticketID string) {
	log := e.logger.With(zap.String("ticket_id", ticketID))

	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		log.Warn("enrichment skipped: ticket not loaded", zap.Error(err))
		e.metrics.EnrichmentOutcome("skipped")
		return
	}

	analysis, err := e.analyzer.Analyze(ctx, ticket.Title, ticket.Description)
	if err != nil {
		log.Warn("enrichment failed", zap.Error(err))
		e.metrics.EnrichmentOutcome("failed")
		return
	}

	if err := e.tickets.UpdateAIFields(ctx, ticketID, analysis); err != nil {
		log.Warn("enrichment not saved", zap.Error(err))
		e.metrics.EnrichmentOutcome("failed")
		return
	}

	log.Debug("ticket enriched", zap.String("sentiment", string(analysis.Sentiment)))
	e.metrics.EnrichmentOutcome("ok")
}
