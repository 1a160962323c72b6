package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Category    domain.TicketCategory `json:"category"`
	Tags        StringList            `json:"tags"`
}

// UpdateTicketRequest payload. Absent fields are left unchanged; assignedTo
// null or "" unassigns.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	Category    *domain.TicketCategory `json:"category"`
	Tags        StringList             `json:"tags"`
	AssignedTo  NullableString         `json:"assignedTo"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssignedTo NullableString `json:"assignedTo"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Content    string `json:"content"`
	IsInternal Bool   `json:"isInternal"`
}

// TicketResponse is the public ticket representation.
type TicketResponse struct {
	ID                  string                 `json:"id"`
	TicketNumber        string                 `json:"ticketNumber"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description"`
	Status              domain.TicketStatus    `json:"status"`
	Priority            domain.TicketPriority  `json:"priority"`
	Category            domain.TicketCategory  `json:"category"`
	Customer            UserRefResponse        `json:"customer"`
	AssignedTo          *UserRefResponse       `json:"assignedTo"`
	Tags                []string               `json:"tags"`
	Attachments         []AttachmentResponse   `json:"attachments"`
	AISentiment         *domain.Sentiment      `json:"aiSentiment"`
	AISuggestedPriority *domain.TicketPriority `json:"aiSuggestedPriority"`
	AISuggestedCategory *domain.TicketCategory `json:"aiSuggestedCategory"`
	AISummary           *string                `json:"aiSummary"`
	ResolvedAt          *time.Time             `json:"resolvedAt"`
	ClosedAt            *time.Time             `json:"closedAt"`
	FirstResponseAt     *time.Time             `json:"firstResponseAt"`
	CreatedAt           time.Time              `json:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt"`
}

// MessageResponse represents a thread message.
type MessageResponse struct {
	ID          string               `json:"id"`
	TicketID    string               `json:"ticketId"`
	Sender      *UserRefResponse     `json:"sender"`
	SenderRole  domain.SenderRole    `json:"senderRole"`
	Content     string               `json:"content"`
	IsInternal  bool                 `json:"isInternal"`
	Attachments []AttachmentResponse `json:"attachments"`
	ReadAt      *time.Time           `json:"readAt"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// SuggestedReplyResponse wraps an AI drafted reply.
type SuggestedReplyResponse struct {
	SuggestedReply string `json:"suggestedReply"`
}

// NewTicketResponse maps a ticket. Unexpanded references carry the id only.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:                  t.ID,
		TicketNumber:        t.TicketNumber,
		Title:               t.Title,
		Description:         t.Description,
		Status:              t.Status,
		Priority:            t.Priority,
		Category:            t.Category,
		Customer:            UserRefResponse{ID: t.CustomerID},
		Tags:                t.Tags,
		Attachments:         NewAttachmentResponses(t.Attachments),
		AISentiment:         t.AISentiment,
		AISuggestedPriority: t.AISuggestedPriority,
		AISuggestedCategory: t.AISuggestedCategory,
		AISummary:           t.AISummary,
		ResolvedAt:          t.ResolvedAt,
		ClosedAt:            t.ClosedAt,
		FirstResponseAt:     t.FirstResponseAt,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if t.Customer != nil {
		resp.Customer = NewUserRefResponse(t.Customer)
	}
	if t.Assignee != nil {
		ref := NewUserRefResponse(t.Assignee)
		resp.AssignedTo = &ref
	} else if t.AssignedTo != nil {
		resp.AssignedTo = &UserRefResponse{ID: *t.AssignedTo}
	}
	return resp
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewMessageResponse maps a thread message.
func NewMessageResponse(m *domain.Message) MessageResponse {
	resp := MessageResponse{
		ID:          m.ID,
		TicketID:    m.TicketID,
		SenderRole:  m.SenderRole,
		Content:     m.Content,
		IsInternal:  m.IsInternal,
		Attachments: NewAttachmentResponses(m.Attachments),
		ReadAt:      m.ReadAt,
		CreatedAt:   m.CreatedAt,
	}
	if m.Sender != nil {
		ref := NewUserRefResponse(m.Sender)
		resp.Sender = &ref
	} else if m.SenderID != nil {
		resp.Sender = &UserRefResponse{ID: *m.SenderID}
	}
	return resp
}

// NewMessageResponses maps a slice of messages.
func NewMessageResponses(msgs []domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, NewMessageResponse(&msgs[i]))
	}
	return out
}

// NewAttachmentResponses maps attachments, never returning nil.
func NewAttachmentResponses(in []domain.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(in))
	for _, a := range in {
		out = append(out, AttachmentResponse(a))
	}
	return out
}
