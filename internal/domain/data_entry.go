package domain

import "time"

// DataEntry is a titled numeric record with an optional image.
type DataEntry struct {
	ID          string
	Title       string
	Description string
	Value       float64
	Image       *string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Creator *UserRef
}
