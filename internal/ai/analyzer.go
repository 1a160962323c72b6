// Package ai wraps the language model used to enrich tickets and draft replies.
package ai

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ErrDisabled is returned by the disabled analyzer.
var ErrDisabled = errors.New("ai analysis disabled")

// DefaultSummary is the summary stored when analysis fails.
const DefaultSummary = "Unable to generate AI summary"

// Analyzer produces ticket analyses and reply suggestions.
type Analyzer interface {
	Analyze(ctx context.Context, title, description string) (domain.AIAnalysis, error)
	SuggestReply(ctx context.Context, title, description, history string) (string, error)
}

// DefaultAnalysis is the neutral result used when the model is unavailable.
func DefaultAnalysis() domain.AIAnalysis {
	return domain.AIAnalysis{
		Sentiment:         domain.SentimentNeutral,
		SuggestedPriority: domain.TicketPriorityMedium,
		SuggestedCategory: domain.TicketCategoryGeneral,
		Summary:           DefaultSummary,
	}
}

// AnalyzeOrDefault never fails: errors are logged and DefaultAnalysis is returned.
func AnalyzeOrDefault(ctx context.Context, a Analyzer, logger *zap.Logger, title, description string) domain.AIAnalysis {
	analysis, err := a.Analyze(ctx, title, description)
	if err != nil {
		logger.Warn("ai analysis failed; using defaults", zap.Error(err))
		return DefaultAnalysis()
	}
	return analysis
}

// SuggestReplyOrEmpty returns "" when the model fails.
func SuggestReplyOrEmpty(ctx context.Context, a Analyzer, logger *zap.Logger, title, description, history string) string {
	reply, err := a.SuggestReply(ctx, title, description, history)
	if err != nil {
		logger.Warn("ai reply suggestion failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(reply)
}

// FormatHistory renders the customer-visible part of a thread as
// "role: content" lines. Internal notes are left out.
func FormatHistory(messages []domain.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m.IsInternal {
			continue
		}
		b.WriteString(string(m.SenderRole))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// Disabled is the Analyzer used when no model is configured.
type Disabled struct{}

// Analyze implements Analyzer.
func (Disabled) Analyze(context.Context, string, string) (domain.AIAnalysis, error) {
	return domain.AIAnalysis{}, ErrDisabled
}

// SuggestReply implements Analyzer.
func (Disabled) SuggestReply(context.Context, string, string, string) (string, error) {
	return "", ErrDisabled
}
