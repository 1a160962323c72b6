package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DataEntryRequest payload for create and update. Value accepts a number or
// a numeric string.
type DataEntryRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Value       Number  `json:"value"`
	RemoveImage Bool    `json:"removeImage"`
}

// DataEntryResponse is the public data entry representation. Image is the
// public URL of the stored image.
type DataEntryResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Value       float64         `json:"value"`
	Image       *string         `json:"image"`
	CreatedBy   UserRefResponse `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewDataEntryResponse maps an entry, turning the stored filename into a URL.
func NewDataEntryResponse(e *domain.DataEntry, urlFor func(string) string) DataEntryResponse {
	resp := DataEntryResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Value:       e.Value,
		CreatedBy:   UserRefResponse{ID: e.CreatedBy},
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.Image != nil && *e.Image != "" {
		url := urlFor(*e.Image)
		resp.Image = &url
	}
	if e.Creator != nil {
		resp.CreatedBy = NewUserRefResponse(e.Creator)
	}
	return resp
}

// NewDataEntryResponses maps a slice of entries.
func NewDataEntryResponses(entries []domain.DataEntry, urlFor func(string) string) []DataEntryResponse {
	out := make([]DataEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, NewDataEntryResponse(&entries[i], urlFor))
	}
	return out
}
