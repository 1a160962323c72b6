package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type analysisPayload struct {
	Sentiment string `json:"sentiment"`
	Priority  string `json:"priority"`
	Category  string `json:"category"`
	Summary   string `json:"summary"`
}

// ParseAnalysis decodes a model response into an analysis. Markdown fences are
// stripped and malformed JSON is repaired before decoding. Values outside the
// known enums are rejected.
func ParseAnalysis(raw string) (domain.AIAnalysis, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return domain.AIAnalysis{}, fmt.Errorf("empty model response")
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return domain.AIAnalysis{}, fmt.Errorf("repair model json: %w", repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return domain.AIAnalysis{}, fmt.Errorf("decode model json: %w", err)
		}
	}

	analysis := domain.AIAnalysis{
		Sentiment:         domain.Sentiment(strings.ToLower(strings.TrimSpace(payload.Sentiment))),
		SuggestedPriority: domain.TicketPriority(strings.ToLower(strings.TrimSpace(payload.Priority))),
		SuggestedCategory: domain.TicketCategory(strings.ToLower(strings.TrimSpace(payload.Category))),
		Summary:           strings.TrimSpace(payload.Summary),
	}
	if !analysis.Sentiment.Valid() {
		return domain.AIAnalysis{}, fmt.Errorf("invalid sentiment %q", payload.Sentiment)
	}
	if !analysis.SuggestedPriority.Valid() {
		return domain.AIAnalysis{}, fmt.Errorf("invalid priority %q", payload.Priority)
	}
	if !analysis.SuggestedCategory.Valid() {
		return domain.AIAnalysis{}, fmt.Errorf("invalid category %q", payload.Category)
	}
	return analysis, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	// Models sometimes wrap the object in prose.
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start > 0 && end > start {
		s = s[start : end+1]
	}
	return s
}
