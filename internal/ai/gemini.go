package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"golang.org/x/time/rate"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Gemini calls Google's Gemini models through langchaingo.
type Gemini struct {
	llm     llms.Model
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGemini builds the client. An empty API key is an error; callers fall
// back to Disabled.
func NewGemini(ctx context.Context, cfg config.AIConfig) (*Gemini, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	model, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.GeminiAPIKey),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(model, cfg.RequestsPerMinute, cfg.Timeout()), nil
}

func newGemini(model llms.Model, perMinute int, timeout time.Duration) *Gemini {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Gemini{llm: model, limiter: rate.NewLimiter(limit, 1), timeout: timeout}
}

// Analyze implements Analyzer with a single model call.
func (g *Gemini) Analyze(ctx context.Context, title, description string) (domain.AIAnalysis, error) {
	raw, err := g.generate(ctx, analysisPrompt(title, description), llms.WithTemperature(0.2))
	if err != nil {
		return domain.AIAnalysis{}, err
	}
	return ParseAnalysis(raw)
}

// SuggestReply implements Analyzer.
func (g *Gemini) SuggestReply(ctx context.Context, title, description, history string) (string, error) {
	return g.generate(ctx, replyPrompt(title, description, history), llms.WithTemperature(0.7))
}

func (g *Gemini) generate(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ai rate limit: %w", err)
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return out, nil
}

func analysisPrompt(title, description string) string {
	return fmt.Sprintf(`Analyze this customer support ticket and provide a JSON response.

Ticket Title: %s
Ticket Description: %s

Respond with ONLY valid JSON in this exact format (no markdown, no code blocks):
{
  "sentiment": "positive" | "neutral" | "negative",
  "priority": "low" | "medium" | "high" | "urgent",
  "category": "technical" | "billing" | "general" | "feature_request" | "bug_report",
  "summary": "A brief 1-2 sentence summary of the ticket"
}

Guidelines:
- sentiment: based on customer tone and urgency
- priority: urgent (system down/critical), high (major issue), medium (standard), low (minor/question)
- category: technical (bugs/errors), billing (payments/invoices), feature_request, bug_report, general (other)
- summary: concise summary for quick agent review`, title, description)
}

func replyPrompt(title, description, history string) string {
	prompt := fmt.Sprintf(`You are a helpful customer support agent. Generate a professional response suggestion.

Ticket: %s
Issue: %s
`, title, description)
	if history != "" {
		prompt += "Previous messages:\n" + history + "\n"
	}
	return prompt + "\nProvide a helpful, empathetic response that addresses the customer's concern. Keep it concise and professional."
}
