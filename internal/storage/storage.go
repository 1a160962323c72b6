// Package storage persists uploaded attachment and image files.
package storage

import (
	"context"
	"errors"
	"io"
)

// Destinations used by the services.
const (
	DestinationTickets     = "tickets"
	DestinationMessages    = "ticket-messages"
	DestinationDataEntries = "data-entries"
)

// ErrTooLarge is returned when an upload exceeds the configured size limit.
var ErrTooLarge = errors.New("file exceeds upload size limit")

// File is an incoming upload.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Content  io.Reader
}

// Storage saves and removes files and maps stored filenames to public URLs.
type Storage interface {
	// Upload stores the file under the destination hint and returns its
	// stored filename.
	Upload(ctx context.Context, file File, destination string) (string, error)
	Remove(ctx context.Context, filename string) error
	URLFor(filename string) string
	FilenameFromURL(url string) string
}
