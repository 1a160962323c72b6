package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusPending,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, known := range TicketStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketCategory classifies the request.
type TicketCategory string

const (
	TicketCategoryTechnical      TicketCategory = "technical"
	TicketCategoryBilling        TicketCategory = "billing"
	TicketCategoryGeneral        TicketCategory = "general"
	TicketCategoryFeatureRequest TicketCategory = "feature_request"
	TicketCategoryBugReport      TicketCategory = "bug_report"
)

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	switch c {
	case TicketCategoryTechnical, TicketCategoryBilling, TicketCategoryGeneral,
		TicketCategoryFeatureRequest, TicketCategoryBugReport:
		return true
	}
	return false
}

// Sentiment is the AI-assessed customer tone.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Valid reports whether s is a known sentiment.
func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

// MaxTitleLength bounds ticket titles.
const MaxTitleLength = 200

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	TicketNumber string
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	Category     TicketCategory
	CustomerID   string
	AssignedTo   *string
	Tags         []string
	Attachments  []Attachment

	AISentiment         *Sentiment
	AISuggestedPriority *TicketPriority
	AISuggestedCategory *TicketCategory
	AISummary           *string

	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	FirstResponseAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Expanded references, filled by read paths only.
	Customer *UserRef
	Assignee *UserRef
}

// AIAnalysis is the result of enriching a ticket.
type AIAnalysis struct {
	Sentiment         Sentiment
	SuggestedPriority TicketPriority
	SuggestedCategory TicketCategory
	Summary           string
}

const ticketNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewTicketNumber builds TKT-<base36 millis>-<4 random base36 chars>.
func NewTicketNumber(now time.Time) string {
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = ticketNumberAlphabet[rand.IntN(len(ticketNumberAlphabet))]
	}
	return "TKT-" + stamp + "-" + string(suffix)
}

// EnsureTicketNumber assigns a ticket number unless one is already present.
func EnsureTicketNumber(t *Ticket, now time.Time) {
	if t.TicketNumber == "" {
		t.TicketNumber = NewTicketNumber(now)
	}
}

// SetStatus applies a status and stamps resolvedAt/closedAt the first time
// the ticket enters those states. Stamps are never cleared.
func (t *Ticket) SetStatus(status TicketStatus, now time.Time) {
	t.Status = status
	switch status {
	case TicketStatusResolved:
		if t.ResolvedAt == nil {
			stamp := now.UTC()
			t.ResolvedAt = &stamp
		}
	case TicketStatusClosed:
		if t.ClosedAt == nil {
			stamp := now.UTC()
			t.ClosedAt = &stamp
		}
	}
}

// RecordStaffResponse stamps firstResponseAt iff unset and reports whether it did.
func (t *Ticket) RecordStaffResponse(now time.Time) bool {
	if t.FirstResponseAt != nil {
		return false
	}
	stamp := now.UTC()
	t.FirstResponseAt = &stamp
	return true
}

// AppendAttachments adds attachments to the end of the list.
func (t *Ticket) AppendAttachments(attachments ...Attachment) {
	t.Attachments = append(t.Attachments, attachments...)
}

// ApplyAnalysis copies AI results onto the ticket.
func (t *Ticket) ApplyAnalysis(a AIAnalysis) {
	sentiment, priority, category, summary := a.Sentiment, a.SuggestedPriority, a.SuggestedCategory, a.Summary
	t.AISentiment = &sentiment
	t.AISuggestedPriority = &priority
	t.AISuggestedCategory = &category
	t.AISummary = &summary
}

// NormalizeTags trims tags and drops empties and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
