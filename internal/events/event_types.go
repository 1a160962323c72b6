package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventUserRoleChanged     EventType = "user_role_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// ActorOf converts the authenticated caller into event metadata.
func ActorOf(a domain.Actor) Actor {
	return Actor{ID: a.ID, Role: a.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Title        string                `json:"title"`
	Priority     domain.TicketPriority `json:"priority"`
	Category     domain.TicketCategory `json:"category"`
}

// TicketUpdatedPayload lists the fields a ticket update touched.
type TicketUpdatedPayload struct {
	Fields      []string `json:"fields"`
	Attachments int      `json:"attachments_added"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload. A nil assignee means unassigned.
type TicketAssignedPayload struct {
	PreviousAssignee *string `json:"previous_assignee,omitempty"`
	Assignee         *string `json:"assignee,omitempty"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string            `json:"message_id"`
	SenderRole  domain.SenderRole `json:"sender_role"`
	IsInternal  bool              `json:"is_internal"`
	BodyPreview string            `json:"body_preview"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	TicketNumber     string `json:"ticket_number"`
	MessagesRemoved  int64  `json:"messages_removed"`
	FilesRemoveFails int    `json:"files_remove_failures"`
}

// UserRoleChangedPayload payload.
type UserRoleChangedPayload struct {
	UserID  string      `json:"user_id"`
	OldRole domain.Role `json:"old_role"`
	NewRole domain.Role `json:"new_role"`
}

// Preview shortens message bodies for event payloads.
func Preview(body string, max int) string {
	r := []rune(body)
	if len(r) <= max {
		return body
	}
	return string(r[:max]) + "..."
}
