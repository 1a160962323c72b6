package domain

import "time"

// SenderRole indicates who authored a message.
type SenderRole string

const (
	SenderRoleCustomer SenderRole = "customer"
	SenderRoleAgent    SenderRole = "agent"
	SenderRoleSystem   SenderRole = "system"
	SenderRoleAI       SenderRole = "ai"
)

// SenderRoleFor derives the message sender role from the author's account role.
func SenderRoleFor(role Role) SenderRole {
	if role.IsStaff() {
		return SenderRoleAgent
	}
	return SenderRoleCustomer
}

// Message captures communications in a ticket thread.
type Message struct {
	ID          string
	TicketID    string
	SenderID    *string
	SenderRole  SenderRole
	Content     string
	IsInternal  bool
	Attachments []Attachment
	ReadAt      *time.Time
	CreatedAt   time.Time

	Sender *UserRef
}

// Attachment is an immutable file reference owned by a ticket, message or data entry.
type Attachment struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}
